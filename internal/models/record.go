package models

import "encoding/json"

// Field names of the application form.
const (
	FieldDate            = "date"
	FieldResidentType    = "residentType"
	FieldEmail           = "email"
	FieldPhone1          = "phone1"
	FieldPhone2          = "phone2"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldAddress         = "address"
	FieldLandmark        = "landmark"
	FieldProvider        = "provider"
	FieldPlanDescription = "planDescription"
	FieldPackage         = "package"
	FieldHowKnow         = "howKnow"
	FieldSalesAgent      = "salesAgent"
	FieldContactPerson   = "contactPerson"
)

// RecordFields lists every Field Record key.
var RecordFields = []string{
	FieldDate, FieldResidentType, FieldEmail, FieldPhone1, FieldPhone2,
	FieldFirstName, FieldLastName, FieldAddress, FieldLandmark, FieldProvider,
	FieldPlanDescription, FieldPackage, FieldHowKnow, FieldSalesAgent, FieldContactPerson,
}

// HowKnowOptions is the fixed "how did you know about us" enumeration.
var HowKnowOptions = []string{"Facebook", "Sales Agent", "Flyers", "Tarpaulin", "Referrals"}

// IsRecordField reports whether name is a Field Record key.
func IsRecordField(name string) bool {
	for _, f := range RecordFields {
		if f == name {
			return true
		}
	}
	return false
}

// Record is the Submission Record handed to the mail relay.
type Record struct {
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Date            string  `json:"date"`
	ResidentType    string  `json:"residentType"`
	Email           string  `json:"email"`
	Phone1          string  `json:"phone1"`
	Phone2          string  `json:"phone2"`
	Address         string  `json:"address"`
	Landmark        string  `json:"landmark"`
	MarkerLat       float64 `json:"markerLat"`
	MarkerLng       float64 `json:"markerLng"`
	Provider        string  `json:"provider"`
	PlanDescription string  `json:"planDescription"`
	Package         string  `json:"package"`
	HowKnow         string  `json:"howKnow"`
	SalesAgent      string  `json:"salesAgent"`
	ContactPerson   string  `json:"contactPerson"`
	Signature       string  `json:"signature"`
	ProofBillingURL string  `json:"proofBillingUrl"`
	ValidIDURL      string  `json:"validIdUrl"`
}

// NewRecord builds a Record from field values. Missing keys stay empty.
func NewRecord(fields map[string]string, marker Coordinate) Record {
	return Record{
		FirstName:       fields[FieldFirstName],
		LastName:        fields[FieldLastName],
		Date:            fields[FieldDate],
		ResidentType:    fields[FieldResidentType],
		Email:           fields[FieldEmail],
		Phone1:          fields[FieldPhone1],
		Phone2:          fields[FieldPhone2],
		Address:         fields[FieldAddress],
		Landmark:        fields[FieldLandmark],
		MarkerLat:       marker.Lat,
		MarkerLng:       marker.Lng,
		Provider:        fields[FieldProvider],
		PlanDescription: fields[FieldPlanDescription],
		Package:         fields[FieldPackage],
		HowKnow:         fields[FieldHowKnow],
		SalesAgent:      fields[FieldSalesAgent],
		ContactPerson:   fields[FieldContactPerson],
	}
}

// Params flattens the record into template parameters keyed by JSON name.
func (r Record) Params() map[string]any {
	data, _ := json.Marshal(r)
	var params map[string]any
	json.Unmarshal(data, &params)
	return params
}
