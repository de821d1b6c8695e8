package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recruit-agent-go/internal/config"
	appLogger "recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/tracing"
	"recruit-agent-go/internal/types"
	"recruit-agent-go/pkg/utils"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("recruit-agent-go/storage/mysql")

// ErrCandidateNotFound 按ID查找候选人无结果
var ErrCandidateNotFound = errors.New("候选人不存在")

type gormSpanKey struct{}

// GormTracingPlugin GORM插件，为数据库操作创建OpenTelemetry追踪点
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer: mysqlTracer,
		dbName: dbName,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 为各类CRUD操作注册前后回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		// SQL语句截断后上报，绑定参数不展开，避免候选人数据进span
		if sql := db.Statement.SQL.String(); sql != "" {
			span.SetAttributes(attribute.String("db.statement", tracing.SafeSQL(sql)))
		}

		if db.Error != nil {
			// ErrRecordNotFound属于正常业务分支，不计为span错误
			if errors.Is(db.Error, gorm.ErrRecordNotFound) {
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
				return
			}
			tracing.RecordError(span, db.Error, tracing.ErrorTypeDB)
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// CandidateUpsert 一次摄取落库的完整载荷
type CandidateUpsert struct {
	CandidateID      string
	Profile          types.CandidateProfile
	Risk             types.RiskAssessment
	SearchBlob       string
	PII              types.PIIRecord
	PhoneE164        string // 调用方按辖区规则预先规范化
	OriginalFilename string
	ObjectKey        string
	TextObjectKey    string
	TextMD5          string
	PipelineVersion  string
}

// MySQL 关系库适配器
type MySQL struct {
	db     *gorm.DB
	cfg    *config.MySQLConfig
	logger zerolog.Logger
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{
		db:     db,
		cfg:    cfg,
		logger: appLogger.Component("mysql"),
	}

	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	m.logger.Info().Str("database", cfg.Database).Msg("MySQL连接就绪")
	return m, nil
}

func (m *MySQL) autoMigrateSchema() error {
	return m.db.AutoMigrate(
		&models.Candidate{},
		&models.CandidatePII{},
		&models.OutreachMessage{},
	)
}

// DB 返回底层GORM实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertCandidate 在一个事务里写入候选人主表和PII表
// 同一candidate_id重复写入时整行覆盖
func (m *MySQL) UpsertCandidate(ctx context.Context, payload CandidateUpsert) error {
	profileJSON, err := json.Marshal(payload.Profile)
	if err != nil {
		return fmt.Errorf("序列化候选人画像失败: %w", err)
	}

	candidate := models.Candidate{
		CandidateID:      payload.CandidateID,
		ProfileJSON:      profileJSON,
		RiskScore:        payload.Risk.RiskScore,
		RiskIssuesJSON:   utils.ConvertArrayToJSON(payload.Risk.Issues),
		SearchBlob:       payload.SearchBlob,
		OriginalFilename: payload.OriginalFilename,
		ObjectKey:        payload.ObjectKey,
		TextObjectKey:    payload.TextObjectKey,
		TextMD5:          payload.TextMD5,
		PipelineVersion:  payload.PipelineVersion,
	}
	pii := models.CandidatePII{
		CandidateID: payload.CandidateID,
		FullName:    payload.PII.FullName,
		Email:       payload.PII.Email,
		Phone:       payload.PII.Phone,
		PhoneE164:   payload.PhoneE164,
		Address:     payload.PII.Address,
		City:        payload.PII.Location.City,
		State:       payload.PII.Location.State,
		Country:     payload.PII.Location.Country,
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}},
			UpdateAll: true,
		}).Create(&candidate).Error; err != nil {
			return fmt.Errorf("写入候选人主表失败: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}},
			UpdateAll: true,
		}).Create(&pii).Error; err != nil {
			return fmt.Errorf("写入候选人PII表失败: %w", err)
		}
		return nil
	})
}

// GetCandidate 按ID读取候选人完整记录
func (m *MySQL) GetCandidate(ctx context.Context, candidateID string) (types.CandidateRecord, error) {
	var row models.Candidate
	err := m.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.CandidateRecord{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
		}
		return types.CandidateRecord{}, fmt.Errorf("查询候选人 %s 失败: %w", candidateID, err)
	}
	return decodeCandidateRow(row)
}

// GetCandidatePII 按ID读取候选人真实PII
func (m *MySQL) GetCandidatePII(ctx context.Context, candidateID string) (types.PIIRecord, error) {
	var row models.CandidatePII
	err := m.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.PIIRecord{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
		}
		return types.PIIRecord{}, fmt.Errorf("查询候选人PII %s 失败: %w", candidateID, err)
	}
	return types.PIIRecord{
		FullName: row.FullName,
		Email:    row.Email,
		Phone:    row.Phone,
		Address:  row.Address,
		Location: types.GeoLocation{
			City:    row.City,
			State:   row.State,
			Country: row.Country,
		},
	}, nil
}

// FindCandidateIDByTextMD5 按提取文本MD5查找已有候选人，用于重复内容短路
func (m *MySQL) FindCandidateIDByTextMD5(ctx context.Context, md5Hex string) (string, bool, error) {
	var row models.Candidate
	err := m.db.WithContext(ctx).Select("candidate_id").Where("text_md5 = ?", md5Hex).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("按文本MD5查询失败: %w", err)
	}
	return row.CandidateID, true, nil
}

// SearchBlobs 返回全量 candidate_id → search_blob 映射，供匹配器扫描
func (m *MySQL) SearchBlobs(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		CandidateID string
		SearchBlob  string
	}
	err := m.db.WithContext(ctx).Model(&models.Candidate{}).
		Select("candidate_id", "search_blob").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("读取检索blob失败: %w", err)
	}

	blobs := make(map[string]string, len(rows))
	for _, row := range rows {
		blobs[row.CandidateID] = row.SearchBlob
	}
	return blobs, nil
}

// FetchRecords 按ID集合批量读取候选人记录，顺序不保证
func (m *MySQL) FetchRecords(ctx context.Context, ids []string) ([]types.CandidateRecord, error) {
	if len(ids) == 0 {
		return []types.CandidateRecord{}, nil
	}

	var rows []models.Candidate
	err := m.db.WithContext(ctx).Where("candidate_id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("批量读取候选人失败: %w", err)
	}

	records := make([]types.CandidateRecord, 0, len(rows))
	for _, row := range rows {
		record, err := decodeCandidateRow(row)
		if err != nil {
			m.logger.Warn().Str("candidate_id", row.CandidateID).Err(err).Msg("候选人记录解码失败，跳过")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// LogOutreach 追加一条外联生成审计记录
func (m *MySQL) LogOutreach(ctx context.Context, candidateID, query string, result types.OutreachResult) error {
	row := models.OutreachMessage{
		CandidateID:   candidateID,
		QueryHash:     utils.QueryHash(query),
		Query:         query,
		Message:       result.OutreachMessage,
		QuestionsJSON: utils.ConvertArrayToJSON(result.ScreeningQuestions),
		Source:        string(result.Source),
	}
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("写入外联日志失败: %w", err)
	}
	return nil
}

// ListOutreachHistory 按时间倒序列出候选人的外联记录
func (m *MySQL) ListOutreachHistory(ctx context.Context, candidateID string, limit int) ([]models.OutreachMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.OutreachMessage
	err := m.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("读取外联历史失败: %w", err)
	}
	return rows, nil
}

// decodeCandidateRow 把数据库行还原成领域记录
func decodeCandidateRow(row models.Candidate) (types.CandidateRecord, error) {
	var profile types.CandidateProfile
	if err := json.Unmarshal(row.ProfileJSON, &profile); err != nil {
		return types.CandidateRecord{}, fmt.Errorf("解析画像JSON失败: %w", err)
	}
	profile.Normalize()

	issues := []string{}
	if len(row.RiskIssuesJSON) > 0 {
		if err := json.Unmarshal(row.RiskIssuesJSON, &issues); err != nil {
			return types.CandidateRecord{}, fmt.Errorf("解析风险问题列表失败: %w", err)
		}
	}

	return types.CandidateRecord{
		CandidateID: row.CandidateID,
		Profile:     profile,
		Risk: types.RiskAssessment{
			RiskScore: row.RiskScore,
			Issues:    issues,
		},
		SearchBlob: row.SearchBlob,
	}, nil
}
