package ktregex

// Match is the one-shot form of spec.md section 6's match(subject,
// pattern, options) operation: compile pattern, run it once against
// subject, and discard the compiled program. Callers that will reuse a
// pattern should use Compile/CompileOptions and (*Regex).Exec instead,
// so the parse and compile cost is paid once.
func Match(pattern string, subject []byte, options Options) (bool, error) {
	re, err := CompileOptions(pattern, options)
	if err != nil {
		return false, err
	}
	defer re.Close()
	return re.Exec(subject)
}

// MatchString is Match for a string subject.
func MatchString(pattern, subject string, options Options) (bool, error) {
	return Match(pattern, []byte(subject), options)
}
