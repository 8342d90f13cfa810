// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

type uploadJob struct {
	src, dst *Buffer
	size     uint
}

// NewUploadQueue creates an empty queue submitting through cm on queue.
func NewUploadQueue(cm *CommandManager, queue vk.Queue) *UploadQueue {
	return &UploadQueue{
		commands: cm,
		queue:    queue,
	}
}

// UploadQueue collects staging to device copies and submits them together
// when flushed. A later job for the same destination replaces the earlier
// one, so only the most recent data is copied.
type UploadQueue struct {
	commands *CommandManager
	queue    vk.Queue

	jobs []uploadJob
}

// Enqueue schedules a copy of size bytes from src to dst.
func (q *UploadQueue) Enqueue(src, dst *Buffer, size uint) {
	for i := range q.jobs {
		if q.jobs[i].dst == dst {
			q.jobs[i] = uploadJob{src: src, dst: dst, size: size}
			return
		}
	}
	q.jobs = append(q.jobs, uploadJob{src: src, dst: dst, size: size})
}

// Pending returns the number of copies waiting for Flush.
func (q *UploadQueue) Pending() int {
	return len(q.jobs)
}

// Flush waits for the queue to drain, so no in-flight frame still reads the
// destinations, then records every pending copy in one command buffer and
// waits for it. The queue is empty afterwards, also on error.
func (q *UploadQueue) Flush() error {
	if len(q.jobs) == 0 {
		return nil
	}
	jobs := q.jobs
	q.jobs = nil

	if err := check(vk.QueueWaitIdle(q.queue), "vk.QueueWaitIdle", DeviceLost); err != nil {
		return err
	}
	return q.commands.ExecuteCmd(q.queue, func(cmd vk.CommandBuffer) {
		recordJobs(cmd, jobs)
	})
}

// Drop forgets pending jobs that touch b, used before b is released.
func (q *UploadQueue) Drop(b *Buffer) {
	kept := q.jobs[:0]
	for _, job := range q.jobs {
		if job.src != b && job.dst != b {
			kept = append(kept, job)
		}
	}
	q.jobs = kept
}

func recordJobs(cmd vk.CommandBuffer, jobs []uploadJob) {
	for _, job := range jobs {
		recordCopyBuffer(cmd, job.src, job.dst, job.size)
	}
}
