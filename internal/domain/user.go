package domain

// User Model
type User struct {
	Username  string     `gorm:"primaryKey;size:20"`                                                                    // Primary key
	Password  string     `gorm:"type:text;not null" json:"-"`                                                           // Hashed password, never rendered
	Email     string     `gorm:"size:50;uniqueIndex;not null"`                                                          // Unique email
	FirstName string     `gorm:"size:30;not null"`                                                                      // First name
	LastName  string     `gorm:"size:30;not null"`                                                                      // Last name
	Feedback  []Feedback `gorm:"foreignKey:Username;references:Username;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // One-to-many relationship with Feedback
}

// TableName keeps the table name stable across drivers
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name for display
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
