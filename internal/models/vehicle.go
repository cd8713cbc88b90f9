// internal/models/vehicle.go
package models

// Driver is the profile the logistics system returns for a driver code.
type Driver struct {
	Name    string `bson:"name" json:"name"`
	Surname string `bson:"surname" json:"surname"`
}

// Vehicle is the car the logistics system returns for a vehicle code.
type Vehicle struct {
	Mark         string `bson:"mark" json:"mark"`
	Model        string `bson:"model" json:"model"`
	Color        string `bson:"color,omitempty" json:"color"`
	LicensePlate string `bson:"licensePlate" json:"licensePlate"`
}
