package domain

// DensityField is the smoke attribute that plumes are grouped and styled by.
const DensityField = "Density"

// StyleProperty is the feature property that carries a row's StyleDescriptor.
const StyleProperty = "style"

// StyleDescriptor is a Leaflet-style path style for one smoke row.
type StyleDescriptor struct {
	FillColor string `json:"fillColor"`
	Weight    int    `json:"weight"`
	Color     string `json:"color"`
}

// DefaultStyle applies to any density outside densityStyles, including empty.
var DefaultStyle = StyleDescriptor{FillColor: "#0201015A", Weight: 1, Color: "#0201015A"}

var densityStyles = map[string]StyleDescriptor{
	"Light":  {FillColor: "#b5b5b5", Weight: 1, Color: "#b5b5b5"},
	"Medium": {FillColor: "#6b6b6b", Weight: 1, Color: "#6b6b6b"},
	"Heavy":  {FillColor: "#AC0000", Weight: 1, Color: "#AC0000"},
}

// StyleFor returns the style for a density value. It never fails.
func StyleFor(density string) StyleDescriptor {
	if s, ok := densityStyles[density]; ok {
		return s
	}
	return DefaultStyle
}

// StyleForProperties styles a feature by its Density property. Non-string
// and missing values get DefaultStyle.
func StyleForProperties(props map[string]any) StyleDescriptor {
	density, _ := props[DensityField].(string)
	return StyleFor(density)
}
