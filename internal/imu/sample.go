package imu

// Sample is a single 6-axis reading in physical units: linear acceleration
// in g, angular rate in degrees/second.
type Sample struct {
	Ax float32 `json:"ax"`
	Ay float32 `json:"ay"`
	Az float32 `json:"az"`

	Gx float32 `json:"gx"`
	Gy float32 `json:"gy"`
	Gz float32 `json:"gz"`
}

// Channels returns the sample as a fixed-order array (ax, ay, az, gx, gy, gz),
// the feature order the classifier was trained on.
func (s Sample) Channels() [6]float32 {
	return [6]float32{s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz}
}
