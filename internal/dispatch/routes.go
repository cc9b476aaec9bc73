package dispatch

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/KevinKickass/OpenMachineIO/internal/devices"
	"github.com/KevinKickass/OpenMachineIO/internal/types"
)

// Path segment placeholders. Anything else must match literally.
const (
	argInt  = "{int}"
	argWord = "{word}"
)

type result struct {
	body        string
	contentType string
}

func text(format string, v interface{}) result {
	return result{body: fmt.Sprintf(format, v), contentType: contentTypeText}
}

type handler func(d *devices.Device, args []string, query url.Values) (result, error)

type route struct {
	family  types.Family
	method  string
	pattern []string
	handle  handler
}

var routes = []route{
	// ADC
	{types.FamilyADC, "GET", []string{"analog", "count"}, analogCount},
	{types.FamilyADC, "GET", []string{"analog", "resolution"}, analogResolution},
	{types.FamilyADC, "GET", []string{"analog", "max"}, analogMax},
	{types.FamilyADC, "GET", []string{"analog", "vref"}, analogReference},
	{types.FamilyADC, "GET", []string{"analog", argInt, "integer"}, analogReadInteger},
	{types.FamilyADC, "GET", []string{"analog", argInt, "float"}, analogReadFloat},
	{types.FamilyADC, "GET", []string{"analog", argInt, "volt"}, analogReadVolt},
	{types.FamilyADC, "GET", []string{"analog", "*", "integer"}, analogReadAllInteger},
	{types.FamilyADC, "GET", []string{"analog", "*", "float"}, analogReadAllFloat},
	{types.FamilyADC, "GET", []string{"analog", "*", "volt"}, analogReadAllVolt},

	// GPIOPort
	{types.FamilyGPIOPort, "GET", []string{"count"}, digitalCount},
	{types.FamilyGPIOPort, "GET", []string{argInt, "function"}, digitalFunction},
	{types.FamilyGPIOPort, "GET", []string{argInt, "value"}, digitalRead},
	{types.FamilyGPIOPort, "GET", []string{"*", "integer"}, portRead},
	{types.FamilyGPIOPort, "GET", []string{"*"}, wildcard},
	{types.FamilyGPIOPort, "POST", []string{argInt, "value", argInt}, digitalWrite},
	{types.FamilyGPIOPort, "POST", []string{"*", "integer", argInt}, portWrite},
	{types.FamilyGPIOPort, "POST", []string{argInt, "function", argWord}, setFunction},
}

// match returns the placeholder values of pattern in segments.
func match(pattern, segments []string) ([]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	var args []string
	for i, p := range pattern {
		s := segments[i]
		switch p {
		case argInt:
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				return nil, false
			}
			args = append(args, s)
		case argWord:
			if s == "" {
				return nil, false
			}
			args = append(args, s)
		default:
			if p != s {
				return nil, false
			}
		}
	}
	return args, true
}

func atoi(s string) int {
	v, _ := strconv.ParseInt(s, 10, 64)
	return int(v)
}

func flag(query url.Values, name string) bool {
	switch query.Get(name) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func analogCount(d *devices.Device, _ []string, _ url.Values) (result, error) {
	return text("%d", d.Analog().ChannelCount()), nil
}

func analogResolution(d *devices.Device, _ []string, _ url.Values) (result, error) {
	return text("%d", d.Analog().Resolution()), nil
}

func analogMax(d *devices.Device, _ []string, _ url.Values) (result, error) {
	return text("%d", d.Analog().Max()), nil
}

func analogReference(d *devices.Device, _ []string, _ url.Values) (result, error) {
	return text("%.2f", d.Analog().Reference()), nil
}

func analogReadInteger(d *devices.Device, args []string, q url.Values) (result, error) {
	v, err := d.Analog().ReadInteger(atoi(args[0]), flag(q, "diff"))
	if err != nil {
		return result{}, err
	}
	return text("%d", v), nil
}

func analogReadFloat(d *devices.Device, args []string, q url.Values) (result, error) {
	v, err := d.Analog().ReadFloat(atoi(args[0]), flag(q, "diff"))
	if err != nil {
		return result{}, err
	}
	return text("%.2f", v), nil
}

func analogReadVolt(d *devices.Device, args []string, q url.Values) (result, error) {
	v, err := d.Analog().ReadVolt(atoi(args[0]), flag(q, "diff"))
	if err != nil {
		return result{}, err
	}
	return text("%.2f", v), nil
}

func analogReadAllInteger(d *devices.Device, _ []string, q url.Values) (result, error) {
	values, err := d.Analog().ReadAllInteger(flag(q, "diff"))
	if err != nil {
		return result{}, err
	}
	return channelJSON(values)
}

func analogReadAllFloat(d *devices.Device, _ []string, q url.Values) (result, error) {
	values, err := d.Analog().ReadAllFloat(flag(q, "diff"))
	if err != nil {
		return result{}, err
	}
	return channelJSON(values)
}

func analogReadAllVolt(d *devices.Device, _ []string, q url.Values) (result, error) {
	values, err := d.Analog().ReadAllVolt(flag(q, "diff"))
	if err != nil {
		return result{}, err
	}
	return channelJSON(values)
}

func digitalCount(d *devices.Device, _ []string, _ url.Values) (result, error) {
	return text("%d", d.Digital().ChannelCount()), nil
}

func digitalFunction(d *devices.Device, args []string, _ url.Values) (result, error) {
	fn, err := d.Digital().FunctionString(atoi(args[0]))
	if err != nil {
		return result{}, err
	}
	return text("%s", fn), nil
}

func digitalRead(d *devices.Device, args []string, _ url.Values) (result, error) {
	v, err := d.Digital().DigitalRead(atoi(args[0]))
	if err != nil {
		return result{}, err
	}
	return text("%d", v), nil
}

func portRead(d *devices.Device, _ []string, _ url.Values) (result, error) {
	v, err := d.Digital().PortRead()
	if err != nil {
		return result{}, err
	}
	return text("%d", v), nil
}

func wildcard(d *devices.Device, _ []string, q url.Values) (result, error) {
	values, err := d.Digital().Wildcard(flag(q, "compact"))
	if err != nil {
		return result{}, err
	}
	return channelJSON(values)
}

func digitalWrite(d *devices.Device, args []string, _ url.Values) (result, error) {
	v, err := d.Digital().DigitalWrite(atoi(args[0]), atoi(args[1]))
	if err != nil {
		return result{}, err
	}
	return text("%d", v), nil
}

func portWrite(d *devices.Device, args []string, _ url.Values) (result, error) {
	value := atoi(args[0])
	if err := types.CheckRange("value", value, 0, 1<<d.Digital().ChannelCount()-1); err != nil {
		return result{}, err
	}
	v, err := d.Digital().PortWrite(uint32(value))
	if err != nil {
		return result{}, err
	}
	return text("%d", v), nil
}

func setFunction(d *devices.Device, args []string, _ url.Values) (result, error) {
	fn, err := d.Digital().SetFunctionString(atoi(args[0]), args[1])
	if err != nil {
		return result{}, err
	}
	return text("%s", fn), nil
}
