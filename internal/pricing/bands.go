package pricing

// Band is one of the distance options offered by the delivery calculator.
type Band struct {
	Label string  `json:"label"`
	KM    float64 `json:"km"`
}

// DistanceBands lists the selectable distances. "Over 100 km" is priced as 150 km.
func DistanceBands() []Band {
	return []Band{
		{Label: "5 km", KM: 5},
		{Label: "10 km", KM: 10},
		{Label: "25 km", KM: 25},
		{Label: "50 km", KM: 50},
		{Label: "100 km", KM: 100},
		{Label: "Over 100 km", KM: 150},
	}
}
