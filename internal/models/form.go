package models

// FormKey identifies one of the paperwork categories tracked per student.
type FormKey string

const (
	FormDriverLicense       FormKey = "driverLicense"
	FormInsurance           FormKey = "insurance"
	FormVehicleRegistration FormKey = "vehicleRegistration"
	FormParentPermission    FormKey = "parentPermission"
)

// FormStateUploaded marks a submitted document. A missing key means pending.
const FormStateUploaded = "uploaded"

// FormKeys lists every tracked document in display order.
var FormKeys = []FormKey{
	FormDriverLicense,
	FormInsurance,
	FormVehicleRegistration,
	FormParentPermission,
}

var formLabels = map[FormKey]string{
	FormDriverLicense:       "Driver's License",
	FormInsurance:           "Insurance Card",
	FormVehicleRegistration: "Vehicle Registration",
	FormParentPermission:    "Parent Permission",
}

// Valid reports whether k is a known document key.
func (k FormKey) Valid() bool {
	_, ok := formLabels[k]
	return ok
}

// Label returns the human readable document name.
func (k FormKey) Label() string {
	if label, ok := formLabels[k]; ok {
		return label
	}
	return string(k)
}

// FormDescriptor is the catalog entry exposed to clients.
type FormDescriptor struct {
	Key   FormKey `json:"key"`
	Label string  `json:"label"`
}

// FormCatalog returns the document catalog in display order.
func FormCatalog() []FormDescriptor {
	catalog := make([]FormDescriptor, 0, len(FormKeys))
	for _, key := range FormKeys {
		catalog = append(catalog, FormDescriptor{Key: key, Label: key.Label()})
	}
	return catalog
}

// Forms maps each document key to its state; nil means pending.
type Forms map[FormKey]*string

// NewForms returns forms with every key pending.
func NewForms() Forms {
	forms := make(Forms, len(FormKeys))
	for _, key := range FormKeys {
		forms[key] = nil
	}
	return forms
}

// Uploaded reports whether the given document has been submitted.
func (f Forms) Uploaded(key FormKey) bool {
	state, ok := f[key]
	return ok && state != nil && *state == FormStateUploaded
}

// UploadedCount returns how many tracked documents are submitted.
func (f Forms) UploadedCount() int {
	count := 0
	for _, key := range FormKeys {
		if f.Uploaded(key) {
			count++
		}
	}
	return count
}

// Complete reports whether every tracked document is submitted.
func (f Forms) Complete() bool {
	return f.UploadedCount() == len(FormKeys)
}

// Clone returns an independent copy.
func (f Forms) Clone() Forms {
	clone := make(Forms, len(f))
	for key, state := range f {
		if state == nil {
			clone[key] = nil
			continue
		}
		v := *state
		clone[key] = &v
	}
	return clone
}

// MarkUploaded flips key to uploaded.
func (f Forms) MarkUploaded(key FormKey) {
	v := FormStateUploaded
	f[key] = &v
}
