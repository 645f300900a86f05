/*
Command gdfetch-folder downloads a folder of Google Drive with all of its sub-folders.

The folder is walked depth-first in the order Drive lists it, and every file is downloaded like gdfetch-file does. A file that cannot be downloaded does not stop the walk; all failures are listed at the end and the command exits with status 1.

When two entries of one folder have the same name, the one listed later overwrites the earlier one. Use --rename-duplicates to keep both as "name.ext" and "name_2.ext".

---------------------------------------------------------------

# Usage

$ gdfetch-folder -i [folder id or URL] -d [directory]

Download up to 4 files of a folder at the same time.

$ gdfetch-folder -i [folder id or URL] -d [directory] -p 4

Retrieve the file list of the whole folder tree.

$ gdfetch-folder -i [folder id or URL] --info

---------------------------------------------------------------
*/
package main
