package pii

import (
	"github.com/nyaruka/phonenumbers"
)

// NormalizeE164 把原始电话串规范化为E.164格式
// 解析失败或号码无效时返回空串
// 检测与匿名化始终使用原文中的字面片段，本函数只服务于持久化侧的辅助列
func NormalizeE164(raw, region string) string {
	if raw == "" {
		return ""
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsValidNumber(num) {
		return ""
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
