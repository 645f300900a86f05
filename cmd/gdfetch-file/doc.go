/*
Command gdfetch-file downloads one file from Google Drive.

The file is requested in ranges of 50 MB ("Range: bytes=a-b"). When any request fails, the local file is deleted and the download starts again from the first byte after a fixed wait of 2 seconds. After 10 failed attempts the file is given up and the command exits with status 1.

- Google Docs, Sheets, Slides and Drawings are exported to docx, xlsx, pptx and png.

- Apps Script projects and shortcuts have no content and are skipped.

- Access is authorized with an OAuth client secret file (credentials.json) or, for publicly shared files, an API key.

---------------------------------------------------------------

# Usage

$ gdfetch-file -i [file id or URL] -d [directory]

Several ids can be given on stdin, one per line.

$ cat ids.txt | gdfetch-file -d [directory]

Retrieve the metadata of a file.

$ gdfetch-file -i [file id or URL] --info

---------------------------------------------------------------
*/
package main
