package models

// Client is the person an appointment is booked for
type Client struct {
	BaseModel
	Email     string `gorm:"uniqueIndex;size:255" json:"email"`
	FirstName string `gorm:"size:100" json:"firstName"`
	LastName  string `gorm:"size:100" json:"lastName"`
	Phone     string `gorm:"size:50" json:"phone,omitempty"`
}

// FullName joins first and last name
func (c *Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Role enum
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}
