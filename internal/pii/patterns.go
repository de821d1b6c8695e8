// Package pii 提供基于模式识别的PII检测与匿名化
// 识别四类实体：人名、邮箱、电话、位置。检测失败只降级为空记录，从不向上抛错
package pii

import "regexp"

// 实体类别
const (
	EntityPerson   = "PERSON"
	EntityEmail    = "EMAIL_ADDRESS"
	EntityPhone    = "PHONE_NUMBER"
	EntityLocation = "LOCATION"
)

// 内置的人名误报词表：简历中常被误识别为人名的技术/工具名
var defaultNameLexicon = []string{
	"docker", "kubernetes", "aws", "azure", "gcp", "linux", "windows",
	"macos", "ios", "android", "python", "java", "javascript", "typescript",
	"react", "angular", "vue", "node", "express", "django", "flask",
	"spring", "hibernate", "mysql", "postgresql", "mongodb", "redis",
	"elasticsearch", "kafka", "rabbitmq", "jenkins", "gitlab", "github",
	"bitbucket", "jira", "confluence", "slack", "teams", "zoom", "skype",
}

// 内置的详细地址模式（按澳大利亚地址习惯调校），可通过配置追加其他辖区的模式
// 前三条用于全文扫描候选地址：门牌号+路名后缀、单元/楼层标记、邮政信箱
// 单元标记要求空白分隔且编号含数字，避免全文扫描时命中 Fluent/Flask 这类普通单词
// 最后一条（邮箱）只参与详细地址判定，不参与扫描
var defaultAddressPatterns = []string{
	`(?i)\b\d+[A-Za-z]?\s+(?:[A-Za-z]+\s+){0,2}(?:Street|St|Road|Rd|Avenue|Ave|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Circle|Cir|Way|Place|Pl)\b`,
	`(?i)\b(?:Apt|Apartment|Unit|Suite|Ste|Floor|Fl)\.?\s+[A-Za-z0-9-]*\d[A-Za-z0-9-]*\b|#\s*\d[A-Za-z0-9-]*\b`,
	`(?i)\b(?:P\.?\s?O\.?\s?Box|Post Office Box)\s+\d[A-Za-z0-9-]*\b`,
	`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
}

var (
	// 邮箱识别
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// 电话候选识别，故意宽松，有效性由数字位数校验把关
	phonePattern = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`)

	// 人名候选识别：2到4个首字母大写的连续单词
	personPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3}\b`)

	// 城市/州位置识别：首字母大写的地名后跟2-3位大写州缩写，可带国家
	localityPattern = regexp.MustCompile(`\b[A-Z][A-Za-z]+(?:\s[A-Z][A-Za-z]+)*\s*,\s*[A-Z]{2,3}\b(?:\s*,\s*[A-Z][A-Za-z]+)?`)

	// 位置串按逗号/分号切分
	locationSplitPattern = regexp.MustCompile(`[,;]`)

	// 人名中不允许出现的数字与标点
	invalidNameCharsPattern = regexp.MustCompile(`[0-9!@#$%^&*()_+\-=\[\]{};'"\\|,.<>/?]`)

	// 电话清洗：去掉数字和加号以外的字符
	nonPhoneCharsPattern = regexp.MustCompile(`[^\d+]`)
)
