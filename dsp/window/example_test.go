package window

import "fmt"

func ExampleGenerate_periodic() {
	w := Generate(TypeHann, 4, WithPeriodic())
	gain, _ := CoherentGain(w)
	fmt.Printf("%.2f %.2f %.2f %.2f gain=%.2f\n", w[0], w[1], w[2], w[3], gain)
	// Output:
	// 0.00 0.50 1.00 0.50 gain=0.50
}

func ExampleParse() {
	t, err := Parse("blackman")
	fmt.Println(t, err)
	_, err = Parse("kaiser")
	fmt.Println(err)
	// Output:
	// blackman <nil>
	// unknown window: "kaiser"
}
