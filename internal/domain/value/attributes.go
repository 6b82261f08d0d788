package value

// GiftAttributes описывает трейты конкретного экземпляра подарка.
// Проценты — доля экземпляров коллекции с таким трейтом.
type GiftAttributes struct {
	ModelName      string  `json:"model_name,omitempty"`
	PatternName    string  `json:"pattern_name,omitempty"`
	BackgroundName string  `json:"background_name,omitempty"`
	Model          float64 `json:"model"`
	Pattern        float64 `json:"pattern"`
	Background     float64 `json:"background"`
}

// Sum возвращает суммарную редкость трёх трейтов.
func (a GiftAttributes) Sum() float64 {
	return a.Model + a.Pattern + a.Background
}

// Valid проверяет, что все проценты лежат в (0, 100].
func (a GiftAttributes) Valid() bool {
	for _, p := range []float64{a.Model, a.Pattern, a.Background} {
		if p <= 0 || p > 100 {
			return false
		}
	}
	return true
}
