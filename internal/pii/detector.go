package pii

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"recruit-agent-go/internal/config"
	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/types"

	"github.com/rs/zerolog"
)

// Detector 基于模式识别的PII检测器
// 所有模式在构造时编译完成，Detect本身不会失败
type Detector struct {
	defaultCountry string
	lexicon        map[string]struct{}
	// classifyPatterns 详细地址判定用的全量模式（含邮箱模式与配置追加项）
	classifyPatterns []*regexp.Regexp
	// scanPatterns 地址候选扫描用的模式，不含邮箱模式（邮箱由EMAIL规则处理）
	scanPatterns []*regexp.Regexp
	logger       zerolog.Logger
}

// NewDetector 根据配置构建PII检测器
// 配置中的词表与地址模式会并入内置集合
func NewDetector(cfg config.PIIConfig) (*Detector, error) {
	lexicon := make(map[string]struct{}, len(defaultNameLexicon)+len(cfg.NameLexicon))
	for _, word := range defaultNameLexicon {
		lexicon[strings.ToLower(word)] = struct{}{}
	}
	for _, word := range cfg.NameLexicon {
		lexicon[strings.ToLower(word)] = struct{}{}
	}

	classify := make([]*regexp.Regexp, 0, len(defaultAddressPatterns)+len(cfg.AddressPatterns))
	scan := make([]*regexp.Regexp, 0, len(defaultAddressPatterns)+len(cfg.AddressPatterns))
	for i, p := range defaultAddressPatterns {
		compiled := regexp.MustCompile(p)
		classify = append(classify, compiled)
		if i < len(defaultAddressPatterns)-1 {
			scan = append(scan, compiled)
		}
	}
	for _, p := range cfg.AddressPatterns {
		compiled, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("编译配置的地址模式 %q 失败: %w", p, err)
		}
		classify = append(classify, compiled)
		scan = append(scan, compiled)
	}

	country := cfg.DefaultCountry
	if country == "" {
		country = "Australia"
	}

	return &Detector{
		defaultCountry:   country,
		lexicon:          lexicon,
		classifyPatterns: classify,
		scanPatterns:     scan,
		logger:           logger.Component("pii_detector"),
	}, nil
}

// Detect 从文本中提取PII信息
// 任何内部失败都被吞掉并返回空记录，绝不中断上层流水线
func (d *Detector) Detect(text string) (record types.PIIRecord) {
	record = d.emptyRecord()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn().Interface("panic", r).Msg("PII检测内部失败，返回空记录")
			record = d.emptyRecord()
		}
	}()

	if text == "" {
		return record
	}

	record.FullName = d.detectPerson(text)
	record.Email = detectEmail(text)
	record.Phone = detectPhone(text)
	record.Address = d.detectAddress(text)
	if locality := lastMatch(localityPattern, text); locality != "" {
		record.Location = d.ExtractLocationComponents(locality)
	}

	d.logger.Debug().
		Bool("has_name", record.FullName != "").
		Bool("has_email", record.Email != "").
		Bool("has_phone", record.Phone != "").
		Bool("has_address", record.Address != "").
		Str("city", record.Location.City).
		Msg("PII检测完成")

	return record
}

// detectPerson 返回文档顺序中第一个通过校验的人名候选
// 含词表命中token的候选在识别阶段就被跳过
func (d *Detector) detectPerson(text string) string {
	for _, candidate := range personPattern.FindAllString(text, -1) {
		if d.containsLexiconToken(candidate) {
			continue
		}
		if d.IsValidName(candidate) {
			return candidate
		}
	}
	return ""
}

func (d *Detector) containsLexiconToken(candidate string) bool {
	for _, token := range strings.Fields(strings.ToLower(candidate)) {
		if _, hit := d.lexicon[token]; hit {
			return true
		}
	}
	return false
}

// detectEmail 多个邮箱时取最后一个
func detectEmail(text string) string {
	return lastMatch(emailPattern, text)
}

// detectPhone 多个候选时取最后一个通过位数校验的
func detectPhone(text string) string {
	phone := ""
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		if isLikelyPhone(candidate) {
			phone = candidate
		}
	}
	return phone
}

// isLikelyPhone 清洗掉数字和加号以外的字符后长度不低于10才算电话
func isLikelyPhone(candidate string) bool {
	cleaned := nonPhoneCharsPattern.ReplaceAllString(candidate, "")
	return len(cleaned) >= 10
}

// detectAddress 扫描详细地址候选，取文档中最靠后的匹配
func (d *Detector) detectAddress(text string) string {
	address := ""
	lastStart := -1
	for _, pattern := range d.scanPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			if loc[0] > lastStart {
				lastStart = loc[0]
				address = text[loc[0]:loc[1]]
			}
		}
	}
	return address
}

// IsValidName 校验识别出的人名候选是否可能是真实姓名
func (d *Detector) IsValidName(name string) bool {
	nameLower := strings.ToLower(name)

	// 词表命中
	if _, hit := d.lexicon[nameLower]; hit {
		return false
	}

	// 单个单词不视为完整姓名
	if len(strings.Fields(name)) < 2 {
		return false
	}

	// 数字或空格以外的标点
	if invalidNameCharsPattern.MatchString(name) {
		return false
	}

	// 长度范围
	if n := utf8.RuneCountInString(name); n < 4 || n > 50 {
		return false
	}

	return true
}

// IsDetailedAddress 判断文本是否包含应整体脱敏的详细地址
func (d *Detector) IsDetailedAddress(text string) bool {
	for _, pattern := range d.classifyPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractLocationComponents 从位置串中拆出城市/州/国家
// 按逗号分号切分后按位置填充，不足三段时国家回落到配置的默认辖区
func (d *Detector) ExtractLocationComponents(text string) types.GeoLocation {
	location := types.GeoLocation{Country: d.defaultCountry}

	parts := locationSplitPattern.Split(text, -1)
	if len(parts) >= 1 {
		location.City = strings.TrimSpace(parts[0])
	}
	if len(parts) >= 2 {
		location.State = strings.TrimSpace(parts[1])
	}
	if len(parts) >= 3 {
		if country := strings.TrimSpace(parts[2]); country != "" {
			location.Country = country
		}
	}

	return location
}

func (d *Detector) emptyRecord() types.PIIRecord {
	return types.PIIRecord{Location: types.GeoLocation{Country: d.defaultCountry}}
}

func lastMatch(pattern *regexp.Regexp, text string) string {
	matches := pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}
