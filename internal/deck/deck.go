package deck

// Choice is one selectable point value.
type Choice struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// choices is fixed for the process lifetime; order matters for display.
var choices = []Choice{
	{Value: 1, Label: "1"},
	{Value: 2, Label: "2"},
	{Value: 3, Label: "3"},
	{Value: 5, Label: "5"},
	{Value: 8, Label: "8"},
	{Value: 13, Label: "13"},
	{Value: 20, Label: "20"},
	{Value: 40, Label: "40"},
}

// Choices returns the selectable point values in display order.
// Callers must not mutate the returned slice.
func Choices() []Choice {
	return choices
}

// Valid reports whether v is one of the selectable point values.
func Valid(v int) bool {
	for _, c := range choices {
		if c.Value == v {
			return true
		}
	}
	return false
}
