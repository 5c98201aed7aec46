package domain

// Feedback Model
type Feedback struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"` // Primary key
	Title    string `gorm:"size:100;not null"`        // Feedback title
	Content  string `gorm:"type:text;not null"`       // Feedback body
	Username string `gorm:"size:20;not null;index"`   // Foreign key to User
}

// TableName keeps the table name stable across drivers
func (Feedback) TableName() string {
	return "feedback"
}
