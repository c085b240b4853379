// Package uploader drives an upload run: one remote sample per sample
// directory, one dataset per dataset directory beneath it.
//
// Failures are contained per sample directory. The first error inside a
// sample ends that sample, is reported on the error writer and in the
// returned Report, and the run moves on to the next sample.
package uploader
