package media

import "fmt"

// Tensor mirrors the host application's in-memory image: a flat float
// buffer plus a shape. Supported layouts are (H,W), (H,W,C), (N,H,W,C)
// and (N,C,H,W). Channel-first is assumed when the second axis of a
// 4-D shape is sized 1 or 3.
type Tensor struct {
	Shape []int
	Data  []float32
}

func (t *Tensor) numElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

func (t *Tensor) validate() error {
	if t == nil || len(t.Shape) == 0 {
		return fmt.Errorf("empty tensor")
	}
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("invalid tensor shape %v", t.Shape)
		}
	}
	if len(t.Data) != t.numElements() {
		return fmt.Errorf("tensor data length %d does not match shape %v", len(t.Data), t.Shape)
	}
	return nil
}

// frame is one image of a (possibly batched) tensor, addressable as
// channel-last regardless of the underlying layout.
type frame struct {
	height, width, channels int
	at                      func(y, x, c int) float32
}

// frames splits the tensor into per-image views in batch order.
func (t *Tensor) frames() ([]frame, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	switch len(t.Shape) {
	case 2:
		h, w := t.Shape[0], t.Shape[1]
		return []frame{{
			height: h, width: w, channels: 1,
			at: func(y, x, _ int) float32 { return t.Data[y*w+x] },
		}}, nil

	case 3:
		h, w, c := t.Shape[0], t.Shape[1], t.Shape[2]
		return []frame{{
			height: h, width: w, channels: c,
			at: func(y, x, ch int) float32 { return t.Data[(y*w+x)*c+ch] },
		}}, nil

	case 4:
		n := t.Shape[0]
		channelFirst := t.Shape[1] == 1 || t.Shape[1] == 3

		var h, w, c int
		if channelFirst {
			c, h, w = t.Shape[1], t.Shape[2], t.Shape[3]
		} else {
			h, w, c = t.Shape[1], t.Shape[2], t.Shape[3]
		}

		out := make([]frame, n)
		stride := h * w * c
		for i := 0; i < n; i++ {
			base := i * stride
			if channelFirst {
				out[i] = frame{
					height: h, width: w, channels: c,
					at: func(y, x, ch int) float32 { return t.Data[base+(ch*h+y)*w+x] },
				}
			} else {
				out[i] = frame{
					height: h, width: w, channels: c,
					at: func(y, x, ch int) float32 { return t.Data[base+(y*w+x)*c+ch] },
				}
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported tensor rank %d (shape %v)", len(t.Shape), t.Shape)
	}
}

func (s frame) max() float32 {
	m := s.at(0, 0, 0)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			for c := 0; c < s.channels; c++ {
				if v := s.at(y, x, c); v > m {
					m = v
				}
			}
		}
	}
	return m
}
