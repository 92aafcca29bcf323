package entities

// AmbientPlantID is the plant row used for greenhouse-wide sensors
// (temperature, humidity, light) that are not bound to a single plant.
const AmbientPlantID = 0

// Plant is a row of the plants table.
type Plant struct {
	ID      int    `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Species string `db:"species" json:"species"`
}
