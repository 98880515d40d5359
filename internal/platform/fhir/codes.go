package fhir

import "strings"

// Standard LOINC codes for the observations calculators request. Codes are
// opaque strings handed to the external record's query mechanism unchanged;
// a comma-separated value lists alternative codes for the same measurement.
const (
	// Vital signs
	CodeSystolicBP      = "8480-6"
	CodeDiastolicBP     = "8462-4"
	CodeBPPanel         = "85354-9,55284-4"
	CodeHeartRate       = "8867-4"
	CodeRespiratoryRate = "9279-1"
	CodeTemperature     = "8310-5,8331-1"
	CodeOxygenSat       = "59408-5"

	// Body measurements
	CodeHeight = "8302-2"
	CodeWeight = "29463-7"
	CodeBMI    = "39156-5"

	// Hematology
	CodeHemoglobin = "718-7"
	CodeHematocrit = "4544-3"
	CodeWBC        = "6690-2"
	CodePlatelets  = "777-3"

	// Chemistry
	CodeSodium      = "2951-2"
	CodePotassium   = "2823-3"
	CodeChloride    = "2075-0"
	CodeBicarbonate = "1963-8"
	CodeBUN         = "3094-0"
	CodeCreatinine  = "2160-0"
	CodeGlucose     = "2345-7"
	CodeCalcium     = "17861-6"
	CodeAlbumin     = "1751-7"

	// Liver
	CodeBilirubinTotal = "1975-2"
	CodeAST            = "1920-8"
	CodeALT            = "1742-6"
	CodeINR            = "6301-6"

	// Lipids
	CodeCholesterolTotal = "2093-3"
	CodeHDL              = "2085-9"
	CodeLDL              = "2089-1"
	CodeTriglycerides    = "2571-8"

	// Coagulation / inflammation
	CodeDDimer = "48065-7"
	CodeCRP    = "1988-5"
)

// codeNames maps primary LOINC codes to display labels used in staleness
// warnings and fetch summaries.
var codeNames = map[string]string{
	CodeSystolicBP:       "Systolic blood pressure",
	CodeDiastolicBP:      "Diastolic blood pressure",
	"85354-9":            "Blood pressure panel",
	CodeHeartRate:        "Heart rate",
	CodeRespiratoryRate:  "Respiratory rate",
	"8310-5":             "Body temperature",
	CodeOxygenSat:        "Oxygen saturation",
	CodeHeight:           "Body height",
	CodeWeight:           "Body weight",
	CodeBMI:              "Body mass index",
	CodeHemoglobin:       "Hemoglobin",
	CodeHematocrit:       "Hematocrit",
	CodeWBC:              "White blood cells",
	CodePlatelets:        "Platelets",
	CodeSodium:           "Sodium",
	CodePotassium:        "Potassium",
	CodeChloride:         "Chloride",
	CodeBicarbonate:      "Bicarbonate",
	CodeBUN:              "Blood urea nitrogen",
	CodeCreatinine:       "Creatinine",
	CodeGlucose:          "Glucose",
	CodeCalcium:          "Calcium",
	CodeAlbumin:          "Albumin",
	CodeBilirubinTotal:   "Total bilirubin",
	CodeAST:              "AST",
	CodeALT:              "ALT",
	CodeINR:              "INR",
	CodeCholesterolTotal: "Total cholesterol",
	CodeHDL:              "HDL cholesterol",
	CodeLDL:              "LDL cholesterol",
	CodeTriglycerides:    "Triglycerides",
	CodeDDimer:           "D-dimer",
	CodeCRP:              "C-reactive protein",
}

// CodeName returns a display label for a code, falling back to the code
// itself. Comma-separated alternatives resolve through the primary code.
func CodeName(code string) string {
	if name, ok := codeNames[PrimaryCode(code)]; ok {
		return name
	}
	return code
}

// quantityTypes maps primary codes to the unit-conversion quantity type used
// when a fetch asks for a target unit without naming the type explicitly.
var quantityTypes = map[string]string{
	"8310-5":             "temperature",
	"8331-1":             "temperature",
	CodeWeight:           "weight",
	CodeHeight:           "height",
	CodeSystolicBP:       "pressure",
	CodeDiastolicBP:      "pressure",
	CodeGlucose:          "glucose",
	CodeCreatinine:       "creatinine",
	CodeCalcium:          "calcium",
	CodeAlbumin:          "albumin",
	CodeBilirubinTotal:   "bilirubin",
	CodeHemoglobin:       "hemoglobin",
	CodeBUN:              "bun",
	CodeSodium:           "electrolyte",
	CodePotassium:        "electrolyte",
	CodeChloride:         "electrolyte",
	CodeBicarbonate:      "electrolyte",
	CodeCholesterolTotal: "cholesterol",
	CodeHDL:              "cholesterol",
	CodeLDL:              "cholesterol",
	CodeTriglycerides:    "triglycerides",
	CodePlatelets:        "platelet",
	CodeWBC:              "wbc",
	CodeDDimer:           "ddimer",
}

// QuantityTypeForCode returns the conversion quantity type for a code, or
// "concentration" when the code has no specific mapping.
func QuantityTypeForCode(code string) string {
	if qt, ok := quantityTypes[PrimaryCode(code)]; ok {
		return qt
	}
	return "concentration"
}

// PrimaryCode returns the first code of a comma-separated alternative list.
func PrimaryCode(code string) string {
	if i := strings.IndexByte(code, ','); i >= 0 {
		return strings.TrimSpace(code[:i])
	}
	return strings.TrimSpace(code)
}
