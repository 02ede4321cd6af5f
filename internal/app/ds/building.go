package ds

// Здание из каталога доставки
type Building struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MaxFloors int    `json:"max_floors"` // Последний допустимый этаж
}

// Ответ GET /buildings
type BuildingsResponse struct {
	Buildings []Building `json:"buildings"`
}
