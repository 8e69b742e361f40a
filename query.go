package sirivmfeed

import (
	"strconv"
	"strings"
)

// QueryError is a rejected request parameter; handlers turn it into a 400.
type QueryError struct{ Msg string }

func (e *QueryError) Error() string { return e.Msg }

// parseVehicleMonitoringQuery maps the SIRI request parameters onto filter
// criteria. Parameter names are case-insensitive; values are exact-match.
func parseVehicleMonitoringQuery(params map[string]string) (Criteria, error) {
	m := map[string]string{}
	for k, v := range params {
		m[strings.ToLower(k)] = strings.TrimSpace(v)
	}

	c := Criteria{
		LineRef:     m["lineref"],
		OperatorRef: m["operatorref"],
		VehicleRef:  m["vehicleref"],
		MaxVehicles: -1,
	}

	max, err := parseNonNegativeInt(m["maximumnumberofvehicles"])
	if err != nil {
		return Criteria{}, err
	}
	c.MaxVehicles = max

	return c, nil
}

func parseNonNegativeInt(s string) (int, error) {
	if s == "" {
		return -1, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return -1, &QueryError{Msg: "MaximumNumberOfVehicles must be a non-negative integer."}
	}
	return v, nil
}
