package entity

// Rating — оценка «красоты» серийного номера подарка.
type Rating struct {
	Score       float64 `json:"score"`       // 0.0 - 100.0
	Description string  `json:"description"` // "Solid", "Ladder", ...
	IsUnique    bool    `json:"is_unique"`
}
