// Package normalize projects raw carrier payloads into flat records shared by
// the live table and the spreadsheet export.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sells-group/track-cli/internal/model"
)

// Fallback values for absent source paths.
const (
	NA         = "N/A"
	NoActivity = "No recent activity"
)

// ReferenceCode is the type code of the reference number that is reported.
const ReferenceCode = "13"

// Package address positions. The upstream list is ordered origin first, then
// destination; there is no role field to select on.
const (
	originIndex      = 0
	destinationIndex = 1
)

// Record normalizes one tracking result. It is a pure function of its input
// and never fails: missing data falls back per field.
func Record(r model.TrackingResult) model.NormalizedRecord {
	d := parse(r.Payload)

	rec := model.NormalizedRecord{
		TrackingNumber:     r.Identifier,
		Status:             d.str("currentStatus.description", NA),
		DeliveryDate:       CompactDate(d.str("deliveryDate.0.date", ""), NA),
		LastScan:           d.str("activity.0.status.description", NoActivity),
		LastScanCountry:    lastScanCountry(d),
		LastScanDate:       CompactDate(d.str("activity.0.date", ""), NA),
		LastScanTime:       CompactTime(d.str("activity.0.time", ""), NA),
		Signer:             d.str("deliveryInformation.receivedBy", ""),
		DestinationCountry: d.str(addressPath(destinationIndex, "countryCode"), ""),
		DestinationCity:    d.str(addressPath(destinationIndex, "city"), ""),
		OriginCountry:      d.str(addressPath(originIndex, "countryCode"), ""),
		OriginCity:         d.str(addressPath(originIndex, "city"), ""),
		ServiceLevel:       d.str("service.description", NA),
		Weight:             weight(d),
		PackageCount:       d.str("packageCount", NA),
	}

	rec.Reference = reference(d)
	rec.ReferencePrefix = prefix(rec.Reference, 6)

	if d.object("dimension") {
		l := d.float("dimension.length")
		w := d.float("dimension.width")
		h := d.float("dimension.height")
		rec.HasDimensions = true
		rec.DimWeightValue = DimWeight(l, w, h)
		rec.DimWeight = DisplayDimWeight(rec.DimWeightValue)
		rec.Dimensions = dimensions(d, l, w, h)
	} else {
		rec.DimWeight = NA
		rec.Dimensions = NA
	}

	return rec
}

// Records normalizes results in order.
func Records(results []model.TrackingResult) []model.NormalizedRecord {
	out := make([]model.NormalizedRecord, len(results))
	for i, r := range results {
		out[i] = Record(r)
	}
	return out
}

// Activities returns the formatted scan history, most recent first.
func Activities(payload json.RawMessage) []model.Activity {
	d := parse(payload)
	list := d.get("activity").Array()
	out := make([]model.Activity, 0, len(list))
	for _, a := range list {
		out = append(out, model.Activity{
			Date:        CompactDate(orDefault(a.Get("date"), ""), ""),
			Time:        CompactTime(orDefault(a.Get("time"), ""), ""),
			Description: orDefault(a.Get("status.description"), ""),
			City:        orDefault(a.Get("location.address.city"), ""),
			Country:     countryOf(a.Get("location.address")),
		})
	}
	return out
}

func lastScanCountry(d doc) string {
	c := countryOf(d.get("activity.0.location.address"))
	if c == "" {
		return NA
	}
	return c
}

// countryOf prefers the ISO country code and falls back to the country name.
func countryOf(addr gjson.Result) string {
	if c := orDefault(addr.Get("countryCode"), ""); c != "" {
		return c
	}
	return orDefault(addr.Get("country"), "")
}

func addressPath(index int, field string) string {
	return "packageAddress." + strconv.Itoa(index) + ".address." + field
}

// reference selects the reference number tagged with ReferenceCode, which is
// not necessarily the first one listed.
func reference(d doc) string {
	for _, ref := range d.get("referenceNumber").Array() {
		if strings.TrimSpace(ref.Get("code").String()) == ReferenceCode {
			return orDefault(ref.Get("number"), NA)
		}
	}
	return NA
}

func weight(d doc) string {
	w := d.str("weight.weight", "")
	if w == "" {
		return NA
	}
	if unit := d.str("weight.unitOfMeasurement", ""); unit != "" {
		return w + " " + unit
	}
	return w
}

func dimensions(d doc, l, w, h float64) string {
	s := formatNum(l) + " x " + formatNum(w) + " x " + formatNum(h)
	if unit := d.str("dimension.unitOfMeasurement", ""); unit != "" {
		s += " " + unit
	}
	return s
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
