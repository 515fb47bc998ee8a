package domain

// NotificationType enumerates notification severities.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationAlert   NotificationType = "alert"
)

// NotificationStatus tracks whether the user has seen a notification.
type NotificationStatus string

const (
	StatusRead   NotificationStatus = "read"
	StatusUnread NotificationStatus = "unread"
)

// NotificationUser is the short author summary embedded in notifications.
type NotificationUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
}

// Notification is a server-side notification for one user.
type Notification struct {
	ID        int64              `json:"id"`
	UserID    int64              `json:"userId"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Type      NotificationType   `json:"type"`
	Status    NotificationStatus `json:"status,omitempty"`
	ActionURL *string            `json:"actionUrl"`
	IsActive  bool               `json:"isActive"`
	CreatedAt string             `json:"createdAt"`
	UpdatedAt string             `json:"updatedAt"`
	User      *NotificationUser  `json:"user,omitempty"`
}

// IsUnread treats a missing status as unread.
func (n Notification) IsUnread() bool {
	return n.Status == "" || n.Status == StatusUnread
}

// Channels are the delivery channels of one preference item.
type Channels struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// PreferenceItem is one row of the notification settings form.
type PreferenceItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Enabled     bool     `json:"enabled"`
	Channels    Channels `json:"channels"`
}

// WithEnabled returns a copy with enabled set and every channel following it.
func (p PreferenceItem) WithEnabled(enabled bool) PreferenceItem {
	p.Enabled = enabled
	p.Channels = Channels{Email: enabled, Push: enabled, SMS: enabled}
	return p
}

// NotificationPreferences is the ordered preference set for one user.
type NotificationPreferences struct {
	UserID      int64            `json:"userId,omitempty"`
	Preferences []PreferenceItem `json:"preferences"`
}

// Clone deep-copies the preference list.
func (p *NotificationPreferences) Clone() *NotificationPreferences {
	if p == nil {
		return nil
	}
	out := &NotificationPreferences{UserID: p.UserID}
	out.Preferences = append([]PreferenceItem(nil), p.Preferences...)
	return out
}

// NotificationPage is one page of a notification listing.
type NotificationPage struct {
	Count int64          `json:"count"`
	Rows  []Notification `json:"rows"`
}
