package normalize

import "github.com/sells-group/track-cli/internal/model"

// Columns are the human-readable titles shared by the live table and the
// export, in display order.
var Columns = []string{
	"Tracking Number",
	"Status",
	"Delivery Date",
	"Last Scan",
	"Last Scan Date",
	"Last Scan Time",
	"Last Scan Country",
	"Signed By",
	"Destination Country",
	"Destination City",
	"Origin Country",
	"Origin City",
	"Service Level",
	"Weight",
	"PKG Count",
	"Reference",
	"ICIRS Number",
	"Dimensions",
	"Dim Weight",
}

// DisplayRow returns the live-table cells for rec in Columns order.
func DisplayRow(rec model.NormalizedRecord) []string {
	return row(rec, rec.DimWeight)
}

// ExportRow returns the export cells for rec in Columns order. It differs
// from DisplayRow only in the rounding of the dimensional weight.
func ExportRow(rec model.NormalizedRecord) []string {
	dw := NA
	if rec.HasDimensions {
		dw = ExportDimWeight(rec.DimWeightValue)
	}
	return row(rec, dw)
}

func row(rec model.NormalizedRecord, dimWeight string) []string {
	return []string{
		rec.TrackingNumber,     // Tracking Number
		rec.Status,             // Status
		rec.DeliveryDate,       // Delivery Date
		rec.LastScan,           // Last Scan
		rec.LastScanDate,       // Last Scan Date
		rec.LastScanTime,       // Last Scan Time
		rec.LastScanCountry,    // Last Scan Country
		rec.Signer,             // Signed By
		rec.DestinationCountry, // Destination Country
		rec.DestinationCity,    // Destination City
		rec.OriginCountry,      // Origin Country
		rec.OriginCity,         // Origin City
		rec.ServiceLevel,       // Service Level
		rec.Weight,             // Weight
		rec.PackageCount,       // PKG Count
		rec.Reference,          // Reference
		rec.ReferencePrefix,    // ICIRS Number
		rec.Dimensions,         // Dimensions
		dimWeight,              // Dim Weight
	}
}
