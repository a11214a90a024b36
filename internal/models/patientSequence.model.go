package models

type PatientSequence struct {
	Day       string `gorm:"column:day;type:text;primaryKey"       json:"day"`
	LastValue int    `gorm:"column:last_value;type:integer;not null" json:"lastValue"`
}

func (PatientSequence) TableName() string {
	return "patient_id_sequences"
}
