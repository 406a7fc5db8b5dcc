// Package domain defines the persistence models for users, articles, replies,
// and AI responses. These types are mapped with GORM and form the core data
// layer of the fact-checking backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account created through one of the supported OAuth
// providers. A user is first matched by provider ID; when only the email
// matches an existing account, the provider ID is linked to that account.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email / Name / AvatarURL: profile data copied from the provider.
//   - FacebookID / GithubID / GoogleID: provider identities (indexed).
//   - AppID: client application that created the account.
type User struct {
	ID         string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Email      string         `json:"email"      gorm:"type:varchar(255);index"`
	Name       string         `json:"name"       gorm:"type:varchar(255)"`
	AvatarURL  string         `json:"avatar_url" gorm:"type:varchar(512)"`
	FacebookID string         `json:"-"          gorm:"type:varchar(64);index"`
	GithubID   string         `json:"-"          gorm:"type:varchar(64);index"`
	GoogleID   string         `json:"-"          gorm:"type:varchar(64);index"`
	AppID      string         `json:"app_id"     gorm:"type:varchar(64)"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Article is a reported message or article submitted for fact checking.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Text: full text of the reported message.
//   - UserID / AppID: identity of the reporter.
//   - Source: free-form channel descriptor (e.g. "LINE", "WEB").
type Article struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Text      string         `json:"text"       gorm:"type:text;not null"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_articles"`
	AppID     string         `json:"app_id"     gorm:"type:varchar(64)"`
	Source    string         `json:"source"     gorm:"type:varchar(64)"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Article.
func (Article) TableName() string { return "articles" }

// Reply classification values. A reply marks the referenced content as a
// rumor, as verified content, as personal opinion, or as not an article at all.
const (
	ReplyTypeRumor       = "RUMOR"
	ReplyTypeNotRumor    = "NOT_RUMOR"
	ReplyTypeOpinionated = "OPINIONATED"
	ReplyTypeNotArticle  = "NOT_ARTICLE"
)

// Reply is a human-authored fact-checking reply. Replies are attached to
// articles through the ArticleReply join model so one reply can answer
// multiple copies of the same rumor.
type Reply struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Text      string         `json:"text"       gorm:"type:text;not null"`
	Type      string         `json:"type"       gorm:"type:varchar(16);not null;check:type IN ('RUMOR','NOT_RUMOR','OPINIONATED','NOT_ARTICLE')"`
	Reference string         `json:"reference"  gorm:"type:text"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	AppID     string         `json:"app_id"     gorm:"type:varchar(64)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Reply.
func (Reply) TableName() string { return "replies" }

// ArticleReply statuses.
const (
	ArticleReplyStatusNormal  = "NORMAL"
	ArticleReplyStatusDeleted = "DELETED"
)

// ArticleReply connects a Reply to an Article. A user may connect a given
// reply to a given article at most once (enforced by unique index).
type ArticleReply struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	ArticleID string         `json:"article_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_article_reply_user"`
	ReplyID   string         `json:"reply_id"   gorm:"type:char(36);not null;index;uniqueIndex:ux_article_reply_user"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_article_reply_user"`
	AppID     string         `json:"app_id"     gorm:"type:varchar(64)"`
	Status    string         `json:"status"     gorm:"type:varchar(16);not null;default:'NORMAL';check:status IN ('NORMAL','DELETED')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Article and Reply are the joined aggregates. Connections are
	// cascade-deleted when either side is removed.
	Article Article `json:"-" gorm:"foreignKey:ArticleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Reply   Reply   `json:"reply" gorm:"foreignKey:ReplyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ArticleReply.
func (ArticleReply) TableName() string { return "article_replies" }

// AIResponse lifecycle statuses. Transitions are monotonic: a record is
// created LOADING and finalized exactly once to SUCCESS or ERROR.
const (
	AIStatusLoading = "LOADING"
	AIStatusSuccess = "SUCCESS"
	AIStatusError   = "ERROR"
)

// AIResponseTypeReply is the response type produced by the AI-reply workflow.
// The state machine supports additional types sharing the same table.
const AIResponseTypeReply = "AI_REPLY"

// TokenUsage is the token accounting reported by the completion API for a
// successful response.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// AIResponse tracks one attempt to produce an AI-generated reply for a
// document. The newest SUCCESS record per (DocID, Type) is canonical; LOADING
// records older than the coordinator's recency window are treated as
// abandoned. Records are never deleted.
//
// Request holds the serialized payload sent to the completion API so the
// exact prompt can be audited and reproduced later. Text carries the reply
// content on SUCCESS and the stringified upstream error on ERROR. The token
// counters are populated only when the API reports usage.
type AIResponse struct {
	ID               string         `json:"id"         gorm:"type:char(36);primaryKey"`
	DocID            string         `json:"doc_id"     gorm:"type:char(36);not null;index:idx_doc_type_status,priority:1"`
	Type             string         `json:"type"       gorm:"type:varchar(32);not null;index:idx_doc_type_status,priority:2"`
	Status           string         `json:"status"     gorm:"type:varchar(16);not null;index:idx_doc_type_status,priority:3;check:status IN ('LOADING','SUCCESS','ERROR')"`
	Request          string         `json:"-"          gorm:"type:text"`
	Text             string         `json:"text"       gorm:"type:text"`
	PromptTokens     *int           `json:"-"`
	CompletionTokens *int           `json:"-"`
	TotalTokens      *int           `json:"-"`
	UserID           string         `json:"user_id"    gorm:"type:varchar(64);not null"`
	AppID            string         `json:"app_id"     gorm:"type:varchar(64)"`
	CreatedAt        time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for AIResponse.
func (AIResponse) TableName() string { return "ai_responses" }

// Usage returns the structured token accounting, or nil when the completion
// API did not report usage for this record.
func (r *AIResponse) Usage() *TokenUsage {
	if r.PromptTokens == nil && r.CompletionTokens == nil && r.TotalTokens == nil {
		return nil
	}
	u := &TokenUsage{}
	if r.PromptTokens != nil {
		u.PromptTokens = *r.PromptTokens
	}
	if r.CompletionTokens != nil {
		u.CompletionTokens = *r.CompletionTokens
	}
	if r.TotalTokens != nil {
		u.TotalTokens = *r.TotalTokens
	}
	return u
}

// Terminal reports whether the record has reached a final status.
func (r *AIResponse) Terminal() bool {
	return r.Status == AIStatusSuccess || r.Status == AIStatusError
}
