package models

// City is an entry of the location catalog.
type City struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Area is a district inside a city.
type Area struct {
	ID     int    `json:"id"`
	CityID int    `json:"cityId"`
	Name   string `json:"name"`
}
