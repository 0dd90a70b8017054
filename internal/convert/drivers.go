package convert

import "os/exec"

// Driver describes one available conversion backend.
type Driver struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
	Native     bool     `json:"native"` // false means it shells out
}

// Drivers lists the conversion backends available right now. The native
// drivers are always present; ogr2ogr shows up only when the binary is
// on PATH.
func Drivers() []Driver {
	drivers := []Driver{
		{Name: string(FormatGeoJSON), Extensions: []string{".geojson", ".json"}, Native: true},
		{Name: string(FormatFlatGeobuf), Extensions: []string{".fgb"}, Native: true},
	}

	if HasOGR() {
		drivers = append(drivers, Driver{
			Name:       "ogr2ogr",
			Extensions: []string{".geojson", ".json", ".fgb", ".shp"},
		})
	}

	return drivers
}

// HasOGR reports whether the external ogr2ogr binary can be found.
func HasOGR() bool {
	_, err := exec.LookPath(ogrBinary)
	return err == nil
}

// HasDriver reports whether a driver with the given name is available.
func HasDriver(name string) bool {
	for _, d := range Drivers() {
		if d.Name == name {
			return true
		}
	}
	return false
}
