package scene

// Keyframes holds sampled values for one animated property of one node.
type Keyframes struct {
	Node     string
	Property string
	Times    []float32
	Values   []float32
}

// Animated node properties.
const (
	PropTranslation = "translation"
	PropRotation    = "rotation"
	PropScale       = "scale"
	PropWeights     = "weights"
)

// AnimationClip groups the keyframe tracks of one named animation.
type AnimationClip struct {
	Name     string
	Duration float64
	Tracks   []Keyframes
}

// Model is a loaded asset: a scene graph plus any animation clips that came
// with it.
type Model struct {
	Scene      *Node
	Animations []AnimationClip
}
