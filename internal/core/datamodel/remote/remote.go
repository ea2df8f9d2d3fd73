package remote

import "time"

// Document is a user-scoped record in the SQL rendition of the hosted document
// store. SortYear/SortMonth/SortDate are projected from the payload so snapshots
// can be ordered without decoding it.
type Document struct {
	UserID     string    `gorm:"column:user_id;primaryKey;size:128"`
	Collection string    `gorm:"column:collection;primaryKey;size:64"`
	DocID      string    `gorm:"column:doc_id;primaryKey;size:128"`
	Data       []byte    `gorm:"column:data;not null"`
	SortYear   int       `gorm:"column:sort_year;default:0"`
	SortMonth  int       `gorm:"column:sort_month;default:0"`
	SortDate   string    `gorm:"column:sort_date;size:10"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Document) TableName() string {
	return "remote_documents"
}
