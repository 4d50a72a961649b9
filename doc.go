// Package hexbin converts a text stream of whitespace separated hexadecimal
// byte pairs into raw binary.
//
// The conversion runs as three concurrent stages joined by two fixed size
// rings: a reader that copies input text into the first ring in bulk chunks,
// a converter that decodes one character at a time into the second ring, and
// a writer that drains decoded bytes to the output in bulk chunks. Producers
// block while a ring is full and consumers block while it is empty, so memory
// stays bounded no matter how large the input is.
package hexbin
