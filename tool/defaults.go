package tool

// DefaultRegistry assembles the built-in editor tool set. Additional tools
// can be registered on the returned registry.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(NewReadFileTool())
	r.MustRegister(NewWriteFileTool())
	r.MustRegister(NewOpenFileTool())
	r.MustRegister(NewListDirectoryTool())
	r.MustRegister(NewCreateDirectoryTool())
	r.MustRegister(NewDeleteDirectoryTool())
	r.MustRegister(NewStatFileTool())
	r.MustRegister(NewSearchFilesTool())
	r.MustRegister(NewApplyPatchTool())
	r.MustRegister(NewRunCommandTool())
	return r
}
