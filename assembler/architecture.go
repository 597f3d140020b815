package assembler

// tableHost exposes the session to the instruction encoder.
type tableHost struct {
	a *Assembler
}

func (h tableHost) PC() int64 {
	return h.a.pc()
}

func (h tableHost) BigEndian() bool {
	return h.a.bigEndian
}

func (h tableHost) SetBigEndian(bigEndian bool) {
	h.a.bigEndian = bigEndian
}

func (h tableHost) DefineDirective(token string, size int) {
	h.a.directives.set(token, size)
}

func (h tableHost) ReadArchitecture(name string) (string, error) {
	return h.a.readArchitecture(name)
}

func (h tableHost) Evaluate(expression string) (int64, error) {
	return h.a.evaluate(expression, Default)
}

func (h tableHost) Write(data uint64, length int) error {
	return h.a.write(data, length)
}
