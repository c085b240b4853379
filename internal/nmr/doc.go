// Package nmr knows the on-disk layout of Bruker-style NMR experiment
// directories.
//
// A dataset directory is any directory holding a pdata map. Its title lives
// in pdata/1/title and exported JCAMP-DX spectra sit somewhere under pdata/1.
// A sample directory is the parent of one or more dataset directories.
package nmr
