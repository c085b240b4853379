// Package filetree flattens a list of files and directories into the nested
// descriptor structure and the identifier-to-path map that the dataset API
// expects alongside a multipart upload.
//
// Identifiers come from a single counter that starts at 1 for each Encode
// call and is shared by every input path, so file_N and folder_N values are
// unique and ordered across the whole request. The FileMap preserves that
// order, which is also the order of the multipart file parts.
package filetree
