package models

import (
	"strconv"
)

type Finding string

const (
	FindingUnclassified Finding = ""
	FindingPositive     Finding = "positive"
	FindingNegative     Finding = "negative"
	FindingInconclusive Finding = "inconclusive"
)

func (f Finding) Valid() bool {
	switch f {
	case FindingUnclassified, FindingPositive, FindingNegative, FindingInconclusive:
		return true
	}
	return false
}

// ScreeningRecordFields is the column order shared by exports and the
// records browser.
var ScreeningRecordFields = []string{
	"patient_id",
	"name",
	"birthdate",
	"age",
	"sex",
	"contact",
	"eye",
	"diabetes_type",
	"duration_years",
	"hba1c",
	"prev_treatment",
	"notes",
	"result",
	"confidence",
	"finding",
}

type ScreeningRecord struct {
	BaseModel
	PatientID     string  `gorm:"column:patient_id;type:text;not null;index" json:"patientId"`
	Name          string  `gorm:"column:name;type:text;not null"             json:"name"`
	Birthdate     string  `gorm:"column:birthdate;type:text"                 json:"birthdate"`
	Age           *int    `gorm:"column:age;type:integer"                    json:"age"`
	Sex           string  `gorm:"column:sex;type:text"                       json:"sex"`
	Contact       string  `gorm:"column:contact;type:text"                   json:"contact"`
	Eye           string  `gorm:"column:eye;type:text"                       json:"eye"`
	DiabetesType  string  `gorm:"column:diabetes_type;type:text"             json:"diabetesType"`
	DurationYears int     `gorm:"column:duration_years;type:integer"         json:"durationYears"`
	HbA1c         string  `gorm:"column:hba1c;type:text"                     json:"hba1c"`
	PrevTreatment string  `gorm:"column:prev_treatment;type:text"            json:"prevTreatment"`
	Notes         string  `gorm:"column:notes;type:text"                     json:"notes"`
	Result        string  `gorm:"column:result;type:text"                    json:"result"`
	Confidence    string  `gorm:"column:confidence;type:text"                json:"confidence"`
	Finding       Finding `gorm:"column:finding;type:text"                   json:"finding"`
}

func (ScreeningRecord) TableName() string {
	return "patient_records"
}

// Values returns the record's fields as strings in ScreeningRecordFields
// order. An unset age is the empty string.
func (r ScreeningRecord) Values() []string {
	age := ""
	if r.Age != nil {
		age = strconv.Itoa(*r.Age)
	}

	return []string{
		r.PatientID,
		r.Name,
		r.Birthdate,
		age,
		r.Sex,
		r.Contact,
		r.Eye,
		r.DiabetesType,
		strconv.Itoa(r.DurationYears),
		r.HbA1c,
		r.PrevTreatment,
		r.Notes,
		r.Result,
		r.Confidence,
		string(r.Finding),
	}
}
