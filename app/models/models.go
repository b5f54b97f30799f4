package models

// All lists every model for AutoMigrate, parents before children.
func All() []interface{} {
	return []interface{}{
		&RawEvent{},
		&EventError{},
		&Customer{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Refund{},
		&Subscription{},
		&Enrollment{},
		&Attribution{},
		&LastTouch{},
	}
}
