package mcpserver

// NoteFormatURI is the resource URI of NoteFormatContract.
const NoteFormatURI = "plainnote://note-format"

// NoteFormatContract describes how notes are stored so that LLM clients create
// and edit them consistently.
const NoteFormatContract = `# plainnote note format

Notes are plain UTF-8 text files stored flat in one directory.

## Titles

- The title of a note IS its file name without the note extension (default ` + "`.md`" + `).
- Titles must not contain ` + "`/`" + ` or ` + "`\\`" + ` and must not start with a dot.
- Two notes can never share a title. Renaming onto an existing title is refused.
- Creating a note without a title names it Untitled, Untitled1, Untitled2, ...

## Identity

Each note has an identity (device and inode of the file) that survives renames.
Tools that address an existing note take this identity, as returned by list_notes
or create_note. Do not derive it from the title.

## Links

- Link to another note with ` + "`[[Title]]`" + `.
- Renaming a note rewrites every exact ` + "`[[Old Title]]`" + ` to ` + "`[[New Title]]`" + `
  across the directory while edit.linkAutoUpdate is on. ` + "`[[Old Title Extra]]`" + ` is left alone.
- Aliased (` + "`[[Title|text]]`" + `) and heading (` + "`[[Title#h]]`" + `) links count as backlinks
  but are not rewritten.

## Attachments

Files uploaded with upload_asset are copied into the notes directory root under
their base name. They never appear in list_notes. Reference them with
` + "`![description](/api/attachments/<filename>)`" + `.

## Optional frontmatter

A leading YAML block fenced by ` + "`---`" + ` lines is allowed. A ` + "`tags`" + ` list there, and
inline ` + "`#tags`" + ` in the body, are indexed for search.
`
