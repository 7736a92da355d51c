package types

import "strings"

// ShippingAddress is captured at checkout and embedded in the order row.
// Phone is exactly 10 digits and Pincode exactly 6 digits.
type ShippingAddress struct {
	Name    string `json:"name" gorm:"column:name" validate:"required,max=120"`
	Phone   string `json:"phone" gorm:"column:phone" validate:"required,len=10,number"`
	Address string `json:"address" gorm:"column:address" validate:"required,max=500"`
	City    string `json:"city" gorm:"column:city" validate:"required,max=120"`
	State   string `json:"state" gorm:"column:state" validate:"required,max=120"`
	Pincode string `json:"pincode" gorm:"column:pincode" validate:"required,len=6,number"`
}

// Normalize trims surrounding whitespace from every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Name:    strings.TrimSpace(a.Name),
		Phone:   strings.TrimSpace(a.Phone),
		Address: strings.TrimSpace(a.Address),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Pincode: strings.TrimSpace(a.Pincode),
	}
}
