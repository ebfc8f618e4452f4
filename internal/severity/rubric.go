package severity

// RubricOption describes one selectable value of a scored dimension.
type RubricOption struct {
	Value    float64  `json:"value" yaml:"value"`
	Title    string   `json:"title" yaml:"title"`
	Summary  string   `json:"summary" yaml:"summary"`
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// RubricBand maps a score range to its level for display.
type RubricBand struct {
	Level Level    `json:"level"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max"` // exclusive; nil for the open top band
}

// RubricCatalog is the guide shown next to the rule editor.
type RubricCatalog struct {
	Formula string         `json:"formula"`
	DPC     []RubricOption `json:"dpc"`
	EI      []RubricOption `json:"ei"`
	CB      []RubricOption `json:"cb"`
	Bands   []RubricBand   `json:"bands"`
}

func upper(v float64) *float64 { return &v }

// Rubric returns the scoring guide for DPC, EI and CB.
func Rubric() RubricCatalog {
	return RubricCatalog{
		Formula: "final_severity = (dpc * ei) + cb",
		DPC: []RubricOption{
			{Value: 1, Title: "Basic data (low inference)", Summary: "Standalone identifiers with little inference value.",
				Examples: []string{"org/company name", "bank/regulator name", "full name (standalone)", "education / work history"}},
			{Value: 2, Title: "Enables basic profiling", Summary: "Combinations that allow simple profiling of a person.",
				Examples: []string{`("Job title" + "Company")`, `("Education level" + "University")`, `("Role" + "Industry")`}},
			{Value: 3, Title: "Sensitive inference possible", Summary: "Combinations that reveal sensitive categories.",
				Examples: []string{`("Membership" + "Political party")`, `("Attendance record" + "Religious org")`, `("Patient status" + "Treatment center")`}},
			{Value: 4, Title: "High harm / safety risk", Summary: "Could directly threaten safety or expose vulnerable individuals.",
				Examples: []string{`("Full name" + "Exact home address")`, `("Vulnerable person" + "School/location")`, `("Sensitive role" + "Covert location")`}},
		},
		EI: []RubricOption{
			{Value: 0.25, Title: "0.25", Summary: "Hard to identify; weak linkage."},
			{Value: 0.5, Title: "0.50", Summary: "Possible via public linkage; moderate effort."},
			{Value: 0.75, Title: "0.75", Summary: "Reasonably identifiable with common linkage."},
			{Value: 1.0, Title: "1.00", Summary: "Directly identifiable (explicit identifier)."},
		},
		CB: []RubricOption{
			{Value: 0, Title: "No aggravating context", Summary: "General mention; no critical-entity context."},
			{Value: 1, Title: "Notable org / sector context", Summary: "Impact increases, but limited operational or regulatory implications."},
			{Value: 2, Title: "High-impact entity context", Summary: "Large institutions, financial sector, widely targeted entities."},
			{Value: 3, Title: "Critical operator / regulator context", Summary: "Regulators, critical infrastructure operators, key service providers."},
			{Value: 4, Title: "Systemic / national-level context", Summary: "Could drive systemic disruption or national-level consequences."},
		},
		Bands: []RubricBand{
			{Level: LevelLow, Min: MinScore, Max: upper(2)},
			{Level: LevelMed, Min: 2, Max: upper(4)},
			{Level: LevelHigh, Min: 4, Max: upper(6)},
			{Level: LevelCritical, Min: 6},
		},
	}
}
