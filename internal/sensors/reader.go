package sensors

import (
	"github.com/relabs-tech/serve_sense/internal/imu"
)

// SampleReader is the capability interface the capture loops depend on.
// The real ICM-20600 driver and the mock source both implement it; the
// core never sees register addresses.
type SampleReader interface {
	Read() (imu.Sample, error)
}
