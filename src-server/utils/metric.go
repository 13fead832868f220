package utils

type Metric struct {
	StoreWrite chan float64
}

func NewMetric() *Metric {
	return &Metric{
		StoreWrite: make(chan float64),
	}
}
