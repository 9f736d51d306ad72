// Package patch performs surgical edits on workflow source text.
//
// Every operation takes the complete source, locates its target by parsing
// that source, and splices new bytes into the located spans. Bytes outside the
// edited declaration or statement are copied through unchanged, apart from the
// single import line an insertion may need. The output is parsed again before
// it is returned, so a successful patch always yields valid input for the
// extractor and for the next patch.
package patch
