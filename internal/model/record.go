package model

// NormalizedRecord is the flat projection of one carrier payload. Every field
// is already formatted for display; DimWeightValue and HasDimensions keep the
// numeric source so the export can apply its own rounding.
type NormalizedRecord struct {
	TrackingNumber     string  `json:"tracking_number" yaml:"tracking_number"`
	Status             string  `json:"status" yaml:"status"`
	DeliveryDate       string  `json:"delivery_date" yaml:"delivery_date"`
	LastScan           string  `json:"last_scan" yaml:"last_scan"`
	LastScanCountry    string  `json:"last_scan_country" yaml:"last_scan_country"`
	LastScanDate       string  `json:"last_scan_date" yaml:"last_scan_date"`
	LastScanTime       string  `json:"last_scan_time" yaml:"last_scan_time"`
	Signer             string  `json:"signer" yaml:"signer"`
	DestinationCountry string  `json:"destination_country" yaml:"destination_country"`
	DestinationCity    string  `json:"destination_city" yaml:"destination_city"`
	OriginCountry      string  `json:"origin_country" yaml:"origin_country"`
	OriginCity         string  `json:"origin_city" yaml:"origin_city"`
	ServiceLevel       string  `json:"service_level" yaml:"service_level"`
	Weight             string  `json:"weight" yaml:"weight"`
	PackageCount       string  `json:"package_count" yaml:"package_count"`
	Reference          string  `json:"reference" yaml:"reference"`
	ReferencePrefix    string  `json:"reference_prefix" yaml:"reference_prefix"`
	Dimensions         string  `json:"dimensions" yaml:"dimensions"`
	DimWeight          string  `json:"dim_weight" yaml:"dim_weight"`
	DimWeightValue     float64 `json:"-" yaml:"-"`
	HasDimensions      bool    `json:"-" yaml:"-"`
}

// Activity is one formatted scan event from a package's history.
type Activity struct {
	Date        string `json:"date" yaml:"date"`
	Time        string `json:"time" yaml:"time"`
	Description string `json:"description" yaml:"description"`
	City        string `json:"city" yaml:"city"`
	Country     string `json:"country" yaml:"country"`
}
