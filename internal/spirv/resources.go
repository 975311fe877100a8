package spirv

import (
	spv "github.com/gogpu/naga/spirv"
)

// Storage classes of the variables Resources looks at.
const (
	storageUniformConstant = uint32(spv.StorageClassUniformConstant)
	storageUniform         = uint32(spv.StorageClassUniform)
	storagePushConstant    = uint32(spv.StorageClassPushConstant)
)

// Resource is a global variable visible to the host.
type Resource struct {
	ID      uint32
	Name    string
	Set     uint32
	Binding uint32
	Type    *Type
}

// Resources partitions the host-visible variables by category. Each list is
// in variable declaration order.
type Resources struct {
	UniformBuffers []Resource
	SampledImages  []Resource
	PushConstants  []Resource
}

// Resources enumerates uniform buffers, sampled images and push constants.
func (m *Module) Resources() Resources {
	var res Resources

	for _, v := range m.variables {
		ptr := m.types[v.ptrType]
		if ptr == nil || ptr.op != spv.OpTypePointer {
			continue
		}
		handle := m.typeHandle(ptr.args[1])
		elem := m.types[handle.id]
		if elem == nil {
			continue
		}

		r := Resource{
			ID:      v.id,
			Set:     m.decorationWord(v.id, spv.DecorationDescriptorSet),
			Binding: m.decorationWord(v.id, spv.DecorationBinding),
			Type:    handle,
		}

		switch v.storage {
		case storageUniform:
			if elem.op != spv.OpTypeStruct {
				continue
			}
			// BufferBlock under Uniform is the legacy storage buffer form.
			if _, ok := m.decoration(handle.id, decorationBufferBlock); ok {
				continue
			}
			if _, ok := m.decoration(handle.id, spv.DecorationBlock); !ok {
				continue
			}
			r.Name = firstName(m.names[handle.id], m.names[v.id])
			res.UniformBuffers = append(res.UniformBuffers, r)

		case storageUniformConstant:
			if elem.op != opTypeSampledImage {
				continue
			}
			r.Name = firstName(m.names[v.id], m.names[handle.id])
			res.SampledImages = append(res.SampledImages, r)

		case storagePushConstant:
			r.Name = firstName(m.names[v.id], m.names[handle.id])
			res.PushConstants = append(res.PushConstants, r)
		}
	}

	return res
}

func firstName(names ...string) string {
	for _, n := range names {
		if n != "" {
			return n
		}
	}
	return ""
}
