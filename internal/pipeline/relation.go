package pipeline

// Relation names produced in the engine session, in stage order.
const (
	RawData         = "raw_data"
	CleanedData     = "cleaned_data"
	TransformedData = "transformed_data"
	AggregatedData  = "aggregated_data"
)

// Relation is the immutable handle a stage hands to the next one.
type Relation struct {
	Name string
	Rows int64
}
