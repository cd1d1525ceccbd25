package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Profile is the per-patient health record stored at patients/{uid}.
// The browser historically wrote most numeric fields as strings, so every
// field is kept as text except the derived BMI.
type Profile struct {
	Name              string  `firestore:"name,omitempty" json:"name"`
	Age               string  `firestore:"age,omitempty" json:"age"`
	Height            string  `firestore:"height,omitempty" json:"height"`
	Weight            string  `firestore:"weight,omitempty" json:"weight"`
	BMI               float64 `firestore:"bmi" json:"bmi"`
	Habits            string  `firestore:"habits,omitempty" json:"habits"`
	ExerciseRoutine   string  `firestore:"exerciseRoutine,omitempty" json:"exerciseRoutine"`
	Allergies         string  `firestore:"allergies,omitempty" json:"allergies"`
	ChronicConditions string  `firestore:"chronicConditions,omitempty" json:"chronicConditions"`
	FamilyConditions  string  `firestore:"familyConditions,omitempty" json:"familyConditions"`
	OtherNotes        string  `firestore:"otherNotes,omitempty" json:"otherNotes"`
}

var validHabits = map[string]bool{"smoker": true, "drinker": true, "both": true, "none": true}

// ProfileFromMap decodes a schema-loose Firestore document. Numbers, strings
// and missing fields are all accepted.
func ProfileFromMap(data map[string]interface{}) *Profile {
	p := &Profile{
		Name:              text(data["name"]),
		Age:               text(data["age"]),
		Height:            text(data["height"]),
		Weight:            text(data["weight"]),
		Habits:            text(data["habits"]),
		ExerciseRoutine:   text(data["exerciseRoutine"]),
		Allergies:         text(data["allergies"]),
		ChronicConditions: text(data["chronicConditions"]),
		FamilyConditions:  text(data["familyConditions"]),
		OtherNotes:        text(data["otherNotes"]),
	}
	switch v := data["bmi"].(type) {
	case float64:
		p.BMI = v
	case int64:
		p.BMI = float64(v)
	case string:
		p.BMI, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return p
}

func text(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Normalize trims every field and recomputes the BMI from height and weight.
func (p *Profile) Normalize() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Age = strings.TrimSpace(p.Age)
	p.Height = strings.TrimSpace(p.Height)
	p.Weight = strings.TrimSpace(p.Weight)
	p.Habits = strings.ToLower(strings.TrimSpace(p.Habits))
	if p.Habits == "" {
		p.Habits = "none"
	}
	if !validHabits[p.Habits] {
		return fmt.Errorf("habits must be one of smoker, drinker, both, none")
	}
	for name, v := range map[string]string{"age": p.Age, "height": p.Height, "weight": p.Weight} {
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative number", name)
		}
	}
	h, _ := strconv.ParseFloat(p.Height, 64)
	w, _ := strconv.ParseFloat(p.Weight, 64)
	p.BMI = CalculateBMI(h, w)
	return nil
}

// CalculateBMI returns weight / height² rounded to one decimal, or 0 when either
// input is not positive.
func CalculateBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 || weightKg <= 0 {
		return 0
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*10) / 10
}

// BMICategory returns the WHO band for a BMI value.
func BMICategory(bmi float64) string {
	switch {
	case bmi <= 0:
		return "Unknown"
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}
