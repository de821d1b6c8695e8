package processor

import (
	"testing"

	"recruit-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestBuildSearchBlob(t *testing.T) {
	profile := types.CandidateProfile{
		WorkExperience: types.WorkExperience{
			CurrentOrLastJobTitle: "Senior Python Developer",
			PreviousJobTitles:     []string{"Python Developer", "Junior Developer"},
		},
		SkillsAndTools: types.SkillsAndTools{
			Skills:            []string{"Python", "Django", "SQL"},
			ToolsTechnologies: []string{"Docker", "python"},
			SkillCategories: map[string][]string{
				"devops":  {"docker"},
				"backend": {"python", "sql"},
			},
		},
	}

	blob := BuildSearchBlob(profile)

	assert.Equal(t,
		"senior python developer|python developer|junior developer|python|django|sql|docker|backend|devops",
		blob, "blob应小写、按固定顺序、完全去重")
}

func TestBuildSearchBlobStable(t *testing.T) {
	profile := types.CandidateProfile{
		SkillsAndTools: types.SkillsAndTools{
			SkillCategories: map[string][]string{
				"c": {"z"}, "a": {"x"}, "b": {"y"},
			},
		},
	}

	first := BuildSearchBlob(profile)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BuildSearchBlob(profile), "map遍历顺序不应影响blob")
	}
	assert.Equal(t, "a|x|b|y|c|z", first)
}

func TestBuildSearchBlobEmptyProfile(t *testing.T) {
	assert.Equal(t, "", BuildSearchBlob(types.CandidateProfile{}))
}
