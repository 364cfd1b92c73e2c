package ktregex

// Split breaks subject into the substrings between successive matches,
// the way original_source/ktre.c's ktre_split does: a match whose start
// falls exactly at offset 0 or at len(subject) is skipped entirely (it
// ends no piece, and its matched text stays part of the following piece),
// and the trailing piece after the last match is always included, even
// if empty. Whether more than one match is considered is governed by
// the Regex's own compile-time Global option, same as Filter.
//
// If the pattern does not match subject at all, Split returns subject
// as the sole element.
func (r *Regex) Split(subject []byte) ([]string, error) {
	matched, err := r.Exec(subject)
	if err != nil {
		return nil, err
	}
	if !matched {
		return []string{string(subject)}, nil
	}

	var pieces []string
	j := 0
	for _, vec := range r.lastVec {
		if vec[0] == 0 || vec[0] == len(subject) {
			continue
		}
		pieces = append(pieces, string(subject[j:vec[0]]))
		j = vec[0] + vec[1]
	}
	if j <= len(subject) {
		pieces = append(pieces, string(subject[j:]))
	}
	return pieces, nil
}
