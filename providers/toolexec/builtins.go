package toolexec

import (
	"context"
	"fmt"
	"time"
)

/*
	##### CURRENT TIME #####
*/

type currentTimeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA timezone name like 'Europe/Oslo' or 'UTC' (default: UTC)"`
}

type currentTimeOutput struct {
	Time     string `json:"time" jsonschema:"description=Current time formatted as RFC 3339"`
	Timezone string `json:"timezone" jsonschema:"description=The resolved timezone name"`
}

func newCurrentTimeTool() builtin {
	return newBuiltin(
		"get_current_time",
		"Returns the current date and time, optionally in a specific IANA timezone (defaults to UTC).",
		func(ctx context.Context, input currentTimeInput) (any, error) {
			location := time.UTC
			if input.Timezone != "" {
				loaded, err := time.LoadLocation(input.Timezone)
				if err != nil {
					return nil, fmt.Errorf("unknown timezone %q", input.Timezone)
				}
				location = loaded
			}

			now := time.Now().In(location)
			return currentTimeOutput{
				Time:     now.Format(time.RFC3339),
				Timezone: location.String(),
			}, nil
		},
	)
}

/*
	##### CALCULATE #####
*/

type calculateInput struct {
	A  float64 `json:"a" jsonschema:"description=First operand,required"`
	B  float64 `json:"b" jsonschema:"description=Second operand,required"`
	Op string  `json:"op" jsonschema:"description=Arithmetic operation,enum=add,enum=sub,enum=mul,enum=div,required"`
}

type calculateOutput struct {
	Result float64 `json:"result" jsonschema:"description=The result of the calculation"`
}

func newCalculateTool() builtin {
	return newBuiltin(
		"calculate",
		"Performs a basic arithmetic operation (add, sub, mul, div) on two numbers.",
		func(ctx context.Context, input calculateInput) (any, error) {
			var result float64
			switch input.Op {
			case "add", "+":
				result = input.A + input.B
			case "sub", "-":
				result = input.A - input.B
			case "mul", "*":
				result = input.A * input.B
			case "div", "/":
				if input.B == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				result = input.A / input.B
			default:
				return nil, fmt.Errorf("unsupported operation %q", input.Op)
			}
			return calculateOutput{Result: result}, nil
		},
	)
}

/*
	##### WEATHER (MOCK) #####
*/

type weatherInput struct {
	City string `json:"city" jsonschema:"description=City name to report weather for,required"`
}

type weatherOutput struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature_celsius"`
	Conditions  string  `json:"conditions"`
	Note        string  `json:"note"`
}

var weatherConditions = []string{"clear", "partly cloudy", "overcast", "light rain", "snow"}

// newWeatherTool returns the demo weather tool. It produces deterministic
// mock data keyed on the city name so tool-loop behavior is reproducible;
// there is no upstream weather service.
func newWeatherTool() builtin {
	return newBuiltin(
		"get_weather",
		"Returns current weather conditions for a city. Demo tool returning representative mock data.",
		func(ctx context.Context, input weatherInput) (any, error) {
			if input.City == "" {
				return nil, fmt.Errorf("city is required")
			}

			seed := 0
			for _, r := range input.City {
				seed += int(r)
			}

			return weatherOutput{
				City:        input.City,
				Temperature: float64(seed%35) - 5,
				Conditions:  weatherConditions[seed%len(weatherConditions)],
				Note:        "mock data",
			}, nil
		},
	)
}
