package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ExtractionModulePrefix 文档抽取模块
	ExtractionModulePrefix = "extract"
	// OutreachModulePrefix 外联模块
	OutreachModulePrefix = "outreach"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityResult 抽取结果实体
	EntityResult = "result"
	// EntityMessage 外联消息实体
	EntityMessage = "message"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"

	// KeyExtractionResult 整条流水线结果缓存，按原始文件MD5索引 (STRING)
	// 格式: app:extract:result:{fileMD5}
	KeyExtractionResult = AppPrefix + ":" + ExtractionModulePrefix + ":" + EntityResult + ":%s"

	// KeyOutreachMessage 外联消息缓存 (STRING)
	// 格式: app:outreach:message:{candidateID}:{queryMD5}
	KeyOutreachMessage = AppPrefix + ":" + OutreachModulePrefix + ":" + EntityMessage + ":%s:%s"

	// KeyTextMD5Set 已见提取文本MD5集合，跨文件名短路重复内容 (SET)
	// 格式: app:file:text_dedup_set
	KeyTextMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + "text_" + EntityDedupSet
)
