package crs

// registry holds the EPSG codes this tool knows by name. WKT is carried
// for the geographic systems so a .prj sidecar can be emitted; projected
// systems that only show up as codes stay WKT-less.
var registry = map[int]Ref{
	4326: {
		Code: 4326,
		Name: "WGS 84",
		WKT:  `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`,
	},
	4283: {
		Code: 4283,
		Name: "GDA94",
		WKT:  `GEOGCS["GDA94",DATUM["Geocentric_Datum_of_Australia_1994",SPHEROID["GRS 1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["Degree",0.0174532925199433],AUTHORITY["EPSG","4283"]]`,
	},
	4258: {
		Code: 4258,
		Name: "ETRS89",
		WKT:  `GEOGCS["ETRS89",DATUM["European_Terrestrial_Reference_System_1989",SPHEROID["GRS 1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["Degree",0.0174532925199433],AUTHORITY["EPSG","4258"]]`,
	},
	3857: {
		Code: 3857,
		Name: "WGS 84 / Pseudo-Mercator",
	},
	28355: {
		Code: 28355,
		Name: "GDA94 / MGA zone 55",
	},
}
