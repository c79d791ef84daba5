package model

// Station is a bus station (bến xe) that routes start, stop at or end at.
// Coordinates are decimal degrees and are owned by the station admin
// surface; the search engine only reads them.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – human readable station name.
//  Address    – street address shown on tickets.
//  ProvinceID – owning province.
//  Latitude   – WGS84 latitude.
//  Longitude  – WGS84 longitude.
type Station struct {
    ID         uint64  `json:"id"`          // bus_stations.id
    Name       string  `json:"name"`        // bus_stations.name
    Address    string  `json:"address"`     // bus_stations.address
    ProvinceID uint64  `json:"province_id"` // bus_stations.province_id
    Latitude   float64 `json:"latitude"`    // bus_stations.latitude
    Longitude  float64 `json:"longitude"`   // bus_stations.longitude
}
