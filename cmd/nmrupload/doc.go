// Command nmrupload registers NMR experiment directories as samples and
// datasets in an ACData repository.
//
// The upload command walks a directory of TopSpin experiments, asks for
// anything not supplied by flags or configuration (credentials, instrument,
// project, experiment), and creates one sample with one dataset per
// experiment. Listing commands show the instruments, projects and samples a
// session can see; scan previews what an upload would send.
package main
