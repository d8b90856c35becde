package postgres

import (
	"time"

	"gorm.io/datatypes"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

type documentRow struct {
	ID                  string     `gorm:"type:text;primaryKey"`
	Version             int        `gorm:"not null;check:version >= 1"`
	PreviousVersionID   *string    `gorm:"type:text;uniqueIndex"`
	Status              string     `gorm:"type:text;not null;index:idx_documents_pending,priority:1"`
	Archived            bool       `gorm:"not null;index:idx_documents_current,priority:1"`
	Title               string     `gorm:"type:text;not null"`
	Summary             string     `gorm:"type:text;not null"`
	Source              string     `gorm:"type:text;not null"`
	DocumentType        string     `gorm:"type:text;not null"`
	SectionNumber       string     `gorm:"type:text;not null"`
	Filename            string     `gorm:"type:text;not null"`
	FileKey             string     `gorm:"type:text;not null"`
	ChunkCount          int        `gorm:"not null"`
	ProcessingError     string     `gorm:"type:text;not null"`
	AmendmentDate       *time.Time `gorm:"type:timestamptz"`
	EffectiveDate       *time.Time `gorm:"type:timestamptz"`
	ProcessingStartedAt *time.Time `gorm:"type:timestamptz;index:idx_documents_pending,priority:2"`
	UploadedBy          string     `gorm:"type:text;not null"`
	UploadedAt          time.Time  `gorm:"type:timestamptz;not null"`
	LastModifiedBy      string     `gorm:"type:text;not null"`
	LastModifiedAt      time.Time  `gorm:"type:timestamptz;not null;index:idx_documents_current,priority:2"`
}

func (documentRow) TableName() string { return "documents" }

type chunkRow struct {
	DocumentID string            `gorm:"type:text;primaryKey"`
	ChunkIndex int               `gorm:"primaryKey;autoIncrement:false"`
	Content    string            `gorm:"type:text;not null"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null"`
	VectorID   string            `gorm:"type:text;not null;uniqueIndex"`
}

func (chunkRow) TableName() string { return "chunks" }

type auditRow struct {
	ID         int64             `gorm:"primaryKey;autoIncrement"`
	Actor      string            `gorm:"type:text;not null;index:idx_audit_actor,priority:1"`
	Action     string            `gorm:"type:text;not null"`
	DocumentID string            `gorm:"type:text;not null;index"`
	Details    datatypes.JSONMap `gorm:"type:jsonb;not null"`
	Timestamp  time.Time         `gorm:"type:timestamptz;not null;index;index:idx_audit_actor,priority:2"`
	IPAddress  string            `gorm:"type:text;not null"`
	UserAgent  string            `gorm:"type:text;not null"`
}

func (auditRow) TableName() string { return "audit_events" }

func toDocumentRow(d *domain.Document) documentRow {
	return documentRow{
		ID:                  d.ID,
		Version:             d.Version,
		PreviousVersionID:   d.PreviousVersionID,
		Status:              string(d.Status),
		Archived:            d.Archived,
		Title:               d.Title,
		Summary:             d.Summary,
		Source:              d.Source,
		DocumentType:        string(d.DocumentType),
		SectionNumber:       d.SectionNumber,
		Filename:            d.Filename,
		FileKey:             d.FileKey,
		ChunkCount:          d.ChunkCount,
		ProcessingError:     d.ProcessingError,
		AmendmentDate:       utc(d.AmendmentDate),
		EffectiveDate:       utc(d.EffectiveDate),
		ProcessingStartedAt: utc(d.ProcessingStartedAt),
		UploadedBy:          d.UploadedBy,
		UploadedAt:          d.UploadedAt.UTC(),
		LastModifiedBy:      d.LastModifiedBy,
		LastModifiedAt:      d.LastModifiedAt.UTC(),
	}
}

func (r *documentRow) toDomain() *domain.Document {
	return &domain.Document{
		ID:                  r.ID,
		Version:             r.Version,
		PreviousVersionID:   r.PreviousVersionID,
		Status:              domain.Status(r.Status),
		Archived:            r.Archived,
		Title:               r.Title,
		Summary:             r.Summary,
		Source:              r.Source,
		DocumentType:        domain.DocumentType(r.DocumentType),
		SectionNumber:       r.SectionNumber,
		Filename:            r.Filename,
		FileKey:             r.FileKey,
		ChunkCount:          r.ChunkCount,
		ProcessingError:     r.ProcessingError,
		AmendmentDate:       utc(r.AmendmentDate),
		EffectiveDate:       utc(r.EffectiveDate),
		ProcessingStartedAt: utc(r.ProcessingStartedAt),
		UploadedBy:          r.UploadedBy,
		UploadedAt:          r.UploadedAt.UTC(),
		LastModifiedBy:      r.LastModifiedBy,
		LastModifiedAt:      r.LastModifiedAt.UTC(),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func jsonMap(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(m)
}
