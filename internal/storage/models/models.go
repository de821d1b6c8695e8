// Package models 定义GORM持久化模型
// 画像主表只存匿名化后的内容，真实PII独立成表以最小化暴露面
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Candidate 候选人主表
// ProfileJSON中的姓名/邮箱/电话只会是占位符字面量
type Candidate struct {
	CandidateID      string         `gorm:"type:char(36);primaryKey"`
	ProfileJSON      datatypes.JSON `gorm:"type:json;not null"`
	RiskScore        int            `gorm:"index:idx_candidates_risk_score"`
	RiskIssuesJSON   datatypes.JSON `gorm:"type:json"`
	SearchBlob       string         `gorm:"type:text"` // 管道分隔的小写检索词
	OriginalFilename string         `gorm:"type:varchar(255)"`
	ObjectKey        string         `gorm:"type:varchar(1024)"` // 原始文档的对象存储键
	TextObjectKey    string         `gorm:"type:varchar(1024)"` // 提取文本的对象存储键
	TextMD5          string         `gorm:"type:char(32);index:idx_candidates_text_md5"`
	PipelineVersion  string         `gorm:"type:varchar(20)"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// CandidatePII 候选人真实PII，按candidate_id一对一挂在主表下
type CandidatePII struct {
	CandidateID string    `gorm:"type:char(36);primaryKey"`
	FullName    string    `gorm:"type:varchar(255)"`
	Email       string    `gorm:"type:varchar(255);index:idx_candidate_pii_email"`
	Phone       string    `gorm:"type:varchar(50)"`
	PhoneE164   string    `gorm:"type:varchar(20);index:idx_candidate_pii_phone_e164"` // E.164规范化形式，解析失败时为空
	Address     string    `gorm:"type:varchar(512)"`
	City        string    `gorm:"type:varchar(100)"`
	State       string    `gorm:"type:varchar(100)"`
	Country     string    `gorm:"type:varchar(100)"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CandidatePII) TableName() string {
	return "candidate_pii"
}

// OutreachMessage 外联生成审计日志，每次生成追加一行
type OutreachMessage struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement"`
	CandidateID   string         `gorm:"type:char(36);not null;index:idx_outreach_candidate_id"`
	QueryHash     string         `gorm:"type:char(32);index:idx_outreach_query_hash"`
	Query         string         `gorm:"type:text"`
	Message       string         `gorm:"type:text;not null"`
	QuestionsJSON datatypes.JSON `gorm:"type:json"`
	Source        string         `gorm:"type:varchar(20);not null"` // llm / fallback / cache
	CreatedAt     time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_outreach_created_at"`
}

func (OutreachMessage) TableName() string {
	return "outreach_messages"
}
