// Package input captures the operator controls of the MN12864K panel: a
// quadrature rotary encoder with a push button and a 2x2 button matrix.
//
// Capture is done the way interrupt handlers would do it. An Encoder reacts
// to every edge of its two lines, a Matrix scans one column per timer tick,
// and both only ever write single-word atomic cells in a Capture. The main
// loop calls Aggregator.Poll once per iteration to turn those cells into
// edge-triggered State values.
//
//	c := input.Default()
//	enc, _ := input.NewEncoder(gpioreg.ByName("GPIO28"), gpioreg.ByName("GPIO29"), c)
//	go enc.Run(ctx)
//	mat, _ := input.NewMatrix(col0, col1, row0, row1, c)
//	go mat.Run(ctx)
//
//	agg := input.NewAggregator(c)
//	for {
//		s := agg.Poll()
//		if s.Buttons[0].Pressed {
//			// ...
//		}
//	}
package input
