package schema

// Neighborhood is the closed set of neighborhoods the prediction API accepts.
type Neighborhood string

const (
	NAmes   Neighborhood = "NAmes"
	CollgCr Neighborhood = "CollgCr"
	OldTown Neighborhood = "OldTown"
	Edwards Neighborhood = "Edwards"
	Somerst Neighborhood = "Somerst"
	NridgHt Neighborhood = "NridgHt"
	Sawyer  Neighborhood = "Sawyer"
	Gilbert Neighborhood = "Gilbert"
)

// Neighborhoods in declaration order.
var Neighborhoods = []Neighborhood{NAmes, CollgCr, OldTown, Edwards, Somerst, NridgHt, Sawyer, Gilbert}

func (n Neighborhood) Valid() bool {
	switch n {
	case NAmes, CollgCr, OldTown, Edwards, Somerst, NridgHt, Sawyer, Gilbert:
		return true
	}
	return false
}

// HouseStyle is the closed set of dwelling styles.
type HouseStyle string

const (
	OneStory   HouseStyle = "1Story"
	TwoStory   HouseStyle = "2Story"
	OneHalfFin HouseStyle = "1.5Fin"
	SplitLevel HouseStyle = "SLvl"
	SplitFoyer HouseStyle = "SFoyer"
)

// HouseStyles in declaration order.
var HouseStyles = []HouseStyle{OneStory, TwoStory, OneHalfFin, SplitLevel, SplitFoyer}

func (s HouseStyle) Valid() bool {
	switch s {
	case OneStory, TwoStory, OneHalfFin, SplitLevel, SplitFoyer:
		return true
	}
	return false
}

// DefaultColumns is the manifest used before any model has been trained.
var DefaultColumns = func() []string {
	cols := append([]string(nil), NumericFields...)
	for _, n := range Neighborhoods {
		cols = append(cols, FieldNeighborhood+"_"+string(n))
	}
	for _, s := range HouseStyles {
		cols = append(cols, FieldHouseStyle+"_"+string(s))
	}
	return cols
}()
