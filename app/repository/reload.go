package repository

import "gorm.io/gorm"

// reload re-reads dest into a fresh value. After an upsert that took the
// update branch the primary key gorm copied back is not reliable, and a
// non-zero key on dest would be added to the WHERE clause.
func reload[T any](db *gorm.DB, dest *T, query string, args ...interface{}) error {
	var stored T
	if err := db.Where(query, args...).First(&stored).Error; err != nil {
		return err
	}
	*dest = stored
	return nil
}
