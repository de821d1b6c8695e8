package utils

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

// CalculateMD5 computes the MD5 hash of a byte slice.
func CalculateMD5(data []byte) string {
	hasher := md5.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// QueryHash 对查询文本取MD5，作为外联缓存键的一部分
// 先做大小写和首尾空白归一化，同义查询命中同一个键
func QueryHash(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	return CalculateMD5([]byte(normalized))
}

// ConvertArrayToJSON 辅助函数: 将字符串数组转换为JSON
func ConvertArrayToJSON(arr []string) datatypes.JSON {
	if len(arr) == 0 {
		return datatypes.JSON("[]")
	}

	jsonBytes, err := json.Marshal(arr)
	if err != nil {
		// 序列化字符串数组不会失败，兜底返回空数组
		return datatypes.JSON("[]")
	}

	return datatypes.JSON(jsonBytes)
}
