package chip8

// lcg is a byte-wide linear congruential generator. The interpreter
// uses it instead of a host RNG so instruction streams stay
// reproducible across runs and platforms.
type lcg struct {
	mul   byte
	inc   byte
	state byte
}

func newLCG(mul, inc, seed byte) lcg {
	return lcg{mul: mul, inc: inc, state: seed}
}

// next advances the generator and returns the new state. Byte
// arithmetic wraps, which is exactly the modulus the generator wants.
func (g *lcg) next() byte {
	g.state = g.state*g.mul + g.inc
	return g.state
}
