package fizzy

import (
	"fmt"
	"time"
)

// Ref is the compact form of a related record (creator, assignee, actor).
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Board represents a Fizzy board.
type Board struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	PublicDescription  string     `json:"public_description,omitempty"`
	AllAccess          *bool      `json:"all_access,omitempty"`
	AutoPostponePeriod *int       `json:"auto_postpone_period,omitempty"`
	Position           int        `json:"position,omitempty"`
	CardsCount         int        `json:"cards_count,omitempty"`
	URL                string     `json:"url,omitempty"`
	Creator            *Ref       `json:"creator,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// Card statuses accepted by the status filter.
const (
	CardStatusOpen     = "open"
	CardStatusClosed   = "closed"
	CardStatusDeferred = "deferred"
)

// Card represents a Fizzy card. Cards are addressed by Number, not ID.
type Card struct {
	ID                  string     `json:"id"`
	Number              int        `json:"number"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Status              string     `json:"status"`
	Golden              bool       `json:"golden,omitempty"`
	Position            int        `json:"position,omitempty"`
	StepsCount          int        `json:"steps_count,omitempty"`
	CompletedStepsCount int        `json:"completed_steps_count,omitempty"`
	CommentsCount       int        `json:"comments_count,omitempty"`
	DeferredUntil       *FlexTime  `json:"deferred_until,omitempty"`
	URL                 string     `json:"url,omitempty"`
	ImageURL            string     `json:"image_url,omitempty"`
	Board               *Ref       `json:"board,omitempty"`
	BoardID             string     `json:"board_id,omitempty"`
	Column              *Ref       `json:"column,omitempty"`
	ColumnID            string     `json:"column_id,omitempty"`
	Creator             *Ref       `json:"creator,omitempty"`
	CreatorID           string     `json:"creator_id,omitempty"`
	Assignees           []Ref      `json:"assignees,omitempty"`
	AssigneeIDs         []string   `json:"assignee_ids,omitempty"`
	Tags                []Tag      `json:"tags,omitempty"`
	TagIDs              []string   `json:"tag_ids,omitempty"`
	Steps               []Step     `json:"steps,omitempty"`
	CreatedAt           *time.Time `json:"created_at,omitempty"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
}

// Column represents a column on a board.
type Column struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color,omitempty"`
	Position   int        `json:"position,omitempty"`
	BoardID    string     `json:"board_id,omitempty"`
	CardsCount int        `json:"cards_count,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// CommentBody holds both renditions of a comment.
type CommentBody struct {
	PlainText string `json:"plain_text"`
	HTML      string `json:"html"`
}

// Comment represents a comment on a card.
type Comment struct {
	ID             string       `json:"id"`
	Body           *CommentBody `json:"body,omitempty"`
	Card           *Ref         `json:"card,omitempty"`
	CardID         string       `json:"card_id,omitempty"`
	Creator        *Ref         `json:"creator,omitempty"`
	CreatorID      string       `json:"creator_id,omitempty"`
	ReactionsCount int          `json:"reactions_count,omitempty"`
	ReactionsURL   string       `json:"reactions_url,omitempty"`
	URL            string       `json:"url,omitempty"`
	CreatedAt      *time.Time   `json:"created_at,omitempty"`
	UpdatedAt      *time.Time   `json:"updated_at,omitempty"`
}

// Step is a checklist item on a card.
type Step struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	Completed     bool       `json:"completed"`
	Position      int        `json:"position,omitempty"`
	CardID        string     `json:"card_id,omitempty"`
	CompletedBy   *Ref       `json:"completed_by,omitempty"`
	CompletedByID string     `json:"completed_by_id,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Tag is sent by the API with its name under "title".
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"title"`
	Color string `json:"color,omitempty"`
}

// User is a member of an account.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Role         string     `json:"role,omitempty"`
	Active       *bool      `json:"active,omitempty"`
	EmailAddress string     `json:"email_address,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	URL          string     `json:"url,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// NotificationCard is the card a notification points at.
type NotificationCard struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
}

// Notification is an inbox entry of the current user.
type Notification struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Read       bool              `json:"read"`
	Card       *NotificationCard `json:"card,omitempty"`
	CardID     string            `json:"card_id,omitempty"`
	CardNumber int               `json:"card_number,omitempty"`
	CardTitle  string            `json:"card_title,omitempty"`
	CommentID  string            `json:"comment_id,omitempty"`
	Actor      *Ref              `json:"actor,omitempty"`
	ActorID    string            `json:"actor_id,omitempty"`
	ActorName  string            `json:"actor_name,omitempty"`
	URL        string            `json:"url,omitempty"`
	CreatedAt  *time.Time        `json:"created_at,omitempty"`
}

// Reaction is a short reaction on a comment.
type Reaction struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	CommentID string     `json:"comment_id,omitempty"`
	User      *Ref       `json:"user,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// AccountUser is the current user's membership in an account.
type AccountUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Active       bool   `json:"active"`
	EmailAddress string `json:"email_address,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Account is an account the authenticated identity belongs to.
type Account struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	URL  string       `json:"url,omitempty"`
	User *AccountUser `json:"user,omitempty"`
}

// Slug returns the account path prefix used to scope requests, taken from
// the account URL ("https://app.fizzy.do/897362094/" -> "897362094").
func (a Account) Slug() string {
	return slugFromURL(a.URL)
}

// Identity lists the accounts of the authenticated user.
type Identity struct {
	Accounts []Account `json:"accounts"`
}

// DirectUploadTarget is where and how to PUT the file bytes.
type DirectUploadTarget struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// DirectUpload is a blob registered for direct-to-storage upload.
type DirectUpload struct {
	ID           string             `json:"id"`
	Key          string             `json:"key"`
	Filename     string             `json:"filename"`
	ContentType  string             `json:"content_type"`
	ByteSize     int64              `json:"byte_size"`
	Checksum     string             `json:"checksum"`
	SignedID     string             `json:"signed_id"`
	DirectUpload DirectUploadTarget `json:"direct_upload"`
}

// AttachmentTag returns the rich-text tag embedding the upload.
func (u *DirectUpload) AttachmentTag() string {
	return AttachmentTag(u.SignedID)
}

// AttachmentTag builds an action-text attachment for a blob signed ID, for
// use in card descriptions and comment bodies.
func AttachmentTag(signedID string) string {
	return fmt.Sprintf(`<action-text-attachment sgid="%s"></action-text-attachment>`, signedID)
}
